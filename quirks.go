package uac

import "github.com/nExtCamera/libuac/pkg/descriptors"

// quirk overrides parsed descriptor values for a specific (vendorID,
// productID) pair. Kept as a declarative table so adding a device-specific
// workaround is a data change, not a code change.
type quirk struct {
	vendorID, productID uint16
	swapChannels         bool
	mutate               func(si *descriptors.AudioStreamingInterface)
}

var quirkTable = []quirk{
	{
		// A UVC/UAC composite dongle that mis-declares its channel count
		// and sample rate set; it is actually fixed-function stereo at
		// 48kHz and needs one subframe trimmed from the first packet to
		// realign after the device's internal startup skew.
		vendorID:     0x534d,
		productID:    0x2109,
		swapChannels: true,
		mutate: func(si *descriptors.AudioStreamingInterface) {
			if len(si.AlternateSettings) == 0 {
				return
			}
			last := si.AlternateSettings[len(si.AlternateSettings)-1]
			if f := last.Format.Channelled(); f != nil {
				f.NrChannels = 2
				f.Rates = descriptors.RateSpec{Discrete: []uint32{48000}}
			}
		},
	},
}

func lookupQuirk(vendorID, productID uint16) (quirk, bool) {
	for _, q := range quirkTable {
		if q.vendorID == vendorID && q.productID == productID {
			return q, true
		}
	}
	return quirk{}, false
}
