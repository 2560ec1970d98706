package descriptors

import "fmt"

type BinaryCodedDecimal uint16

func (bcd BinaryCodedDecimal) Uint16Value() uint16 {
	// read as little endian bcd
	return ((uint16(bcd&0x00f0) >> 4) * 1000) + (uint16(bcd&0x000f) * 100) + ((uint16(bcd&0xf000) >> 12) * 10) + (uint16(bcd&0x0f00) >> 8)
}

// VersionString renders a bcdADC-style field (e.g. 0x0100) as "1.00".
func (bcd BinaryCodedDecimal) VersionString() string {
	return fmt.Sprintf("%x.%02x", uint16(bcd)>>8, uint16(bcd)&0xff)
}
