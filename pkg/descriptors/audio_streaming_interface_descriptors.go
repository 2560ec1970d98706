package descriptors

import (
	"io"
	"sort"
)

// StandardAudioStreamingInterfaceDescriptor is the plain USB interface
// descriptor for one alternate setting of an audio-streaming interface,
// UAC 1.0 section 4.5.1.
type StandardAudioStreamingInterfaceDescriptor struct {
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	DescriptionIndex  uint8
}

func (s *StandardAudioStreamingInterfaceDescriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) < 9 {
		return io.ErrShortBuffer
	}
	s.InterfaceNumber = buf[2]
	s.AlternateSetting = buf[3]
	s.NumEndpoints = buf[4]
	s.InterfaceClass = buf[5]
	s.InterfaceSubClass = buf[6]
	s.InterfaceProtocol = buf[7]
	s.DescriptionIndex = buf[8]
	return nil
}

// ASGeneralDescriptor is the Class-Specific AS Interface Descriptor,
// UAC 1.0 table 4-19.
type ASGeneralDescriptor struct {
	TerminalLink uint8
	Delay        uint8
	FormatTag    FormatTag
}

func (g *ASGeneralDescriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) < 7 {
		return io.ErrShortBuffer
	}
	g.TerminalLink = buf[3]
	g.Delay = buf[4]
	g.FormatTag = FormatTag(le16(buf[5:7]))
	return nil
}

// IsoEndpointDescriptor is the Class-Specific AS Isochronous Audio Data
// Endpoint Descriptor, UAC 1.0 table 4-21.
type IsoEndpointDescriptor struct {
	Attributes     byte
	LockDelayUnits byte
	LockDelay      uint16
}

func (e *IsoEndpointDescriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) < 7 {
		return io.ErrShortBuffer
	}
	e.Attributes = buf[3]
	e.LockDelayUnits = buf[4]
	e.LockDelay = le16(buf[5:7])
	return nil
}

func (e *IsoEndpointDescriptor) SamplingFreqControlSupported() bool {
	return e.Attributes&EPAttrSamplingFreqControl != 0
}

// RateSpec is a tagged variant over the two ways UAC 1.0 expresses a format
// type's supported sample rates: a discrete list, or a continuous range.
type RateSpec struct {
	Continuous *ContinuousRange
	Discrete   []uint32
}

type ContinuousRange struct {
	Lower, Upper uint32
}

// Contains reports whether rate satisfies this spec: exact membership for a
// discrete list, bounds-inclusive for a range.
func (r RateSpec) Contains(rate uint32) bool {
	if r.Continuous != nil {
		return rate >= r.Continuous.Lower && rate <= r.Continuous.Upper
	}
	for _, d := range r.Discrete {
		if d == rate {
			return true
		}
	}
	return false
}

// SampleRates returns the deduplicated, sorted set of rates this spec
// advertises: the discrete list as-is, or both bounds of a range.
func (r RateSpec) SampleRates() []uint32 {
	var rates []uint32
	if r.Continuous != nil {
		rates = []uint32{r.Continuous.Lower, r.Continuous.Upper}
	} else {
		rates = append(rates, r.Discrete...)
	}
	return dedupSortUint32(rates)
}

// First returns the first declared rate: the first discrete entry, or the
// lower bound of a range. Used to reset a retargeted sampling rate of 0.
func (r RateSpec) First() uint32 {
	if r.Continuous != nil {
		return r.Continuous.Lower
	}
	if len(r.Discrete) > 0 {
		return r.Discrete[0]
	}
	return 0
}

// FormatTypeI is the (Frmts) Type I Format Type Descriptor, table 2-1. The
// same layout is used, by identity, for Type III (table 2-1 notes the
// Type III descriptor format is identical to Type I).
type FormatTypeI struct {
	NrChannels    uint8
	SubframeSize  uint8
	BitResolution uint8
	Rates         RateSpec
}

func parseFormatTypeI(buf []byte) (*FormatTypeI, error) {
	if len(buf) < 8 {
		return nil, io.ErrShortBuffer
	}
	f := &FormatTypeI{
		NrChannels:    buf[4],
		SubframeSize:  buf[5],
		BitResolution: buf[6],
	}
	samFreqType := buf[7]
	if samFreqType == 0 {
		if len(buf) < 14 {
			return nil, io.ErrShortBuffer
		}
		f.Rates.Continuous = &ContinuousRange{
			Lower: le24(buf[8:11]),
			Upper: le24(buf[11:14]),
		}
		return f, nil
	}
	need := 8 + int(samFreqType)*3
	if len(buf) < need {
		return nil, io.ErrShortBuffer
	}
	f.Rates.Discrete = make([]uint32, samFreqType)
	for i := 0; i < int(samFreqType); i++ {
		off := 8 + i*3
		f.Rates.Discrete[i] = le24(buf[off : off+3])
	}
	return f, nil
}

// FormatTypeII is the (Frmts) Type II Format Type Descriptor, table 2-4,
// for compressed bitstream formats (MPEG, AC-3). It is recognised so the
// parser does not misclassify the alternate setting, but its fields are not
// modelled beyond that.
type FormatTypeII struct{}

// FormatSpec is a tagged variant over the three UAC format type descriptors.
type FormatSpec struct {
	TypeI   *FormatTypeI
	TypeII  *FormatTypeII
	TypeIII *FormatTypeI
}

func parseFormatType(formatType FormatType, buf []byte) (FormatSpec, error) {
	switch formatType {
	case FormatTypeCodeI:
		f, err := parseFormatTypeI(buf)
		if err != nil {
			return FormatSpec{}, err
		}
		return FormatSpec{TypeI: f}, nil
	case FormatTypeCodeIII:
		f, err := parseFormatTypeI(buf)
		if err != nil {
			return FormatSpec{}, err
		}
		return FormatSpec{TypeIII: f}, nil
	case FormatTypeCodeII:
		return FormatSpec{TypeII: &FormatTypeII{}}, nil
	default:
		return FormatSpec{}, io.ErrUnexpectedEOF
	}
}

// channelled reports whether this format carries the channel/subframe/rate
// fields capability queries operate over (type I or, by identity, III).
func (f FormatSpec) channelled() *FormatTypeI {
	return f.Channelled()
}

// Channelled returns the type-I (or, by identity, type-III) payload of
// this format, or nil if f holds a type-II (compressed) format.
func (f FormatSpec) Channelled() *FormatTypeI {
	if f.TypeI != nil {
		return f.TypeI
	}
	return f.TypeIII
}

// EndpointInfo is the subset of the standard USB endpoint descriptor the
// stream engine needs, decoupled from any particular USB access layer's
// own endpoint type.
type EndpointInfo struct {
	Address       uint8
	Attributes    uint8 // bits 0-1 are the transfer type
	MaxPacketSize uint16
}

const transferTypeIsochronous = 0x01

func (e EndpointInfo) IsIsochronous() bool {
	return e.Attributes&0x03 == transferTypeIsochronous
}

// AlternateSetting is one non-idle alternate setting of an audio-streaming
// interface: a format, its endpoint, and the endpoint's isochronous
// attributes.
type AlternateSetting struct {
	Index      uint8
	General    ASGeneralDescriptor
	Format     FormatSpec
	Endpoint   EndpointInfo
	EndpointEx IsoEndpointDescriptor
}

// AudioStreamingInterface collects the usable alternate settings (alt 0,
// the idle setting, is never included) of one USB audio-streaming
// interface.
type AudioStreamingInterface struct {
	InterfaceNumber   uint8
	AlternateSettings []*AlternateSetting
}

// AudioFormats returns the deduplicated, sorted set of format tags declared
// across all alternate settings.
func (si *AudioStreamingInterface) AudioFormats() []FormatTag {
	seen := map[FormatTag]bool{}
	var tags []FormatTag
	for _, alt := range si.AlternateSettings {
		tag := alt.General.FormatTag
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

func (si *AudioStreamingInterface) matchingAltSettings(fmtTag FormatTag) []*AlternateSetting {
	var out []*AlternateSetting
	for _, alt := range si.AlternateSettings {
		if fmtTag != FormatTagAny && alt.General.FormatTag != fmtTag {
			continue
		}
		out = append(out, alt)
	}
	return out
}

// ChannelCounts returns the deduplicated, sorted channel counts across
// alternate settings matching fmtTag and carrying a type-1/3 format.
func (si *AudioStreamingInterface) ChannelCounts(fmtTag FormatTag) []uint8 {
	seen := map[uint8]bool{}
	var out []uint8
	for _, alt := range si.matchingAltSettings(fmtTag) {
		f := alt.Format.channelled()
		if f == nil {
			continue
		}
		if !seen[f.NrChannels] {
			seen[f.NrChannels] = true
			out = append(out, f.NrChannels)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BitResolutions returns the deduplicated, sorted bit resolutions across
// alternate settings matching fmtTag and carrying a type-1/3 format.
func (si *AudioStreamingInterface) BitResolutions(fmtTag FormatTag) []uint8 {
	seen := map[uint8]bool{}
	var out []uint8
	for _, alt := range si.matchingAltSettings(fmtTag) {
		f := alt.Format.channelled()
		if f == nil {
			continue
		}
		if !seen[f.BitResolution] {
			seen[f.BitResolution] = true
			out = append(out, f.BitResolution)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SampleRates returns the union of discrete rates and range bounds across
// alternate settings matching fmtTag and carrying a type-1/3 format.
func (si *AudioStreamingInterface) SampleRates(fmtTag FormatTag) []uint32 {
	var all []uint32
	for _, alt := range si.matchingAltSettings(fmtTag) {
		f := alt.Format.channelled()
		if f == nil {
			continue
		}
		all = append(all, f.Rates.SampleRates()...)
	}
	return dedupSortUint32(all)
}

// StreamConfig is the concrete, chosen configuration returned by
// QueryConfig: a specific alternate setting and the parameters it was
// matched on.
type StreamConfig struct {
	FormatTag                     FormatTag
	AltSetting                    uint8
	SubframeSize                  uint8
	BitResolution                 uint8
	ChannelCount                  uint8
	MaxPacketSize                 uint16
	SampleRate                    uint32
	EndpointAddress               uint8
	SamplingFreqControlSupported  bool
}

// QueryConfig returns the first alternate setting satisfying fmtTag,
// channels and rate, or ok==false if none does. fmtTag of FormatTagAny
// matches any format.
func (si *AudioStreamingInterface) QueryConfig(fmtTag FormatTag, channels uint8, rate uint32) (StreamConfig, bool) {
	for _, alt := range si.AlternateSettings {
		if fmtTag != FormatTagAny && alt.General.FormatTag != fmtTag {
			continue
		}
		f := alt.Format.channelled()
		if f == nil || f.NrChannels != channels || !f.Rates.Contains(rate) {
			continue
		}
		return StreamConfig{
			FormatTag:                    alt.General.FormatTag,
			AltSetting:                   alt.Index,
			SubframeSize:                 f.SubframeSize,
			BitResolution:                f.BitResolution,
			ChannelCount:                 f.NrChannels,
			MaxPacketSize:                alt.Endpoint.MaxPacketSize,
			SampleRate:                   rate,
			EndpointAddress:              alt.Endpoint.Address,
			SamplingFreqControlSupported: alt.EndpointEx.SamplingFreqControlSupported(),
		}, true
	}
	return StreamConfig{}, false
}

func dedupSortUint32(in []uint32) []uint32 {
	seen := map[uint32]bool{}
	var out []uint32
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
