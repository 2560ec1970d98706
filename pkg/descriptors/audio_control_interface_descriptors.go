package descriptors

import (
	"fmt"
	"io"
)

// ACHeaderDescriptor is the Class-Specific AC Interface Header Descriptor,
// UAC 1.0 table 4-2.
type ACHeaderDescriptor struct {
	BcdADC       uint16  // Audio Device Class Specification Release Number in BCD
	TotalLength  uint16  // total bytes returned for the class-specific AudioControl interface descriptor
	InCollection uint8   // number of AudioStreaming and MIDIStreaming interfaces
	InterfaceNr  []uint8 // interface numbers of the AudioStreaming/MIDIStreaming interfaces
}

func (h *ACHeaderDescriptor) Subtype() ACSubtype { return ACSubtypeHeader }

func (h *ACHeaderDescriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) < 8 {
		return io.ErrShortBuffer
	}
	h.BcdADC = le16(buf[3:5])
	h.TotalLength = le16(buf[5:7])
	h.InCollection = buf[7]

	if len(buf) < 8+int(h.InCollection) {
		return io.ErrShortBuffer
	}
	h.InterfaceNr = make([]uint8, h.InCollection)
	copy(h.InterfaceNr, buf[8:8+int(h.InCollection)])
	return nil
}

// namesInterface reports whether ifnum is among the streaming interfaces
// this audio function's header names.
func (h *ACHeaderDescriptor) namesInterface(ifnum uint8) bool {
	for _, n := range h.InterfaceNr {
		if n == ifnum {
			return true
		}
	}
	return false
}

// InputTerminalDescriptor is UAC 1.0 table 4-3.
type InputTerminalDescriptor struct {
	TerminalID    uint8
	TerminalType  TerminalType
	AssocTerminal uint8
	NrChannels    uint8
	ChannelConfig uint16
	ChannelNames  uint8
	Terminal      uint8
}

func (t *InputTerminalDescriptor) Subtype() ACSubtype { return ACSubtypeInputTerminal }

func (t *InputTerminalDescriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) < 12 {
		return io.ErrShortBuffer
	}
	t.TerminalID = buf[3]
	t.TerminalType = TerminalType(le16(buf[4:6]))
	t.AssocTerminal = buf[6]
	t.NrChannels = buf[7]
	t.ChannelConfig = le16(buf[8:10])
	t.ChannelNames = buf[10]
	t.Terminal = buf[11]
	return nil
}

// OutputTerminalDescriptor is UAC 1.0 table 4-4.
type OutputTerminalDescriptor struct {
	TerminalID    uint8
	TerminalType  TerminalType
	AssocTerminal uint8
	SourceID      uint8
	Terminal      uint8
}

func (t *OutputTerminalDescriptor) Subtype() ACSubtype { return ACSubtypeOutputTerminal }

func (t *OutputTerminalDescriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) < 9 {
		return io.ErrShortBuffer
	}
	t.TerminalID = buf[3]
	t.TerminalType = TerminalType(le16(buf[4:6]))
	t.AssocTerminal = buf[6]
	t.SourceID = buf[7]
	t.Terminal = buf[8]
	return nil
}

// MixerUnitDescriptor is UAC 1.0 table 4-5. Only the unit identity and its
// sources are modelled; the mixing-control bitmap is not.
type MixerUnitDescriptor struct {
	UnitID   uint8
	SourceID []uint8
}

func (m *MixerUnitDescriptor) Subtype() ACSubtype { return ACSubtypeMixerUnit }

func (m *MixerUnitDescriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) < 5 {
		return io.ErrShortBuffer
	}
	m.UnitID = buf[3]
	nrInPins := int(buf[4])
	if len(buf) < 5+nrInPins {
		return io.ErrShortBuffer
	}
	m.SourceID = make([]uint8, nrInPins)
	copy(m.SourceID, buf[5:5+nrInPins])
	return nil
}

// FeatureUnitDescriptor is UAC 1.0 table 4-7.
type FeatureUnitDescriptor struct {
	UnitID      uint8
	SourceID    uint8
	ControlSize uint8
	// Controls holds one bitmap of size ControlSize per channel, channel 0
	// ("master") first.
	Controls []uint8
	Feature  uint8 // iFeature string index
}

func (f *FeatureUnitDescriptor) Subtype() ACSubtype { return ACSubtypeFeatureUnit }

func (f *FeatureUnitDescriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) < 7 {
		return io.ErrShortBuffer
	}
	f.UnitID = buf[3]
	f.SourceID = buf[4]
	f.ControlSize = buf[5]

	if f.ControlSize == 0 {
		return fmt.Errorf("feature unit %d: zero control size", f.UnitID)
	}
	numControls := (len(buf) - 7) / int(f.ControlSize)
	end := 6 + numControls*int(f.ControlSize)
	if len(buf) < end+1 {
		return io.ErrShortBuffer
	}
	f.Controls = make([]uint8, numControls*int(f.ControlSize))
	copy(f.Controls, buf[6:end])
	f.Feature = buf[end]
	return nil
}

// ChannelControls returns the control bitmap for the given channel, where
// channel 0 is "master".
func (f *FeatureUnitDescriptor) ChannelControls(channel int) []byte {
	start := channel * int(f.ControlSize)
	end := start + int(f.ControlSize)
	if start < 0 || end > len(f.Controls) {
		return nil
	}
	return f.Controls[start:end]
}

// HasControl reports whether the given channel's bitmap has sel set.
func (f *FeatureUnitDescriptor) HasControl(channel int, sel FeatureControlSelector) bool {
	bits := f.ChannelControls(channel)
	if bits == nil {
		return false
	}
	byteIdx := int(sel-1) / 8
	bitIdx := int(sel-1) % 8
	if byteIdx >= len(bits) {
		return false
	}
	return bits[byteIdx]&(1<<bitIdx) != 0
}

// UnitKind is a tagged variant over the unit subtypes the parser models in
// detail. Units it merely recognises (selector, processing, extension) carry
// only their id so that topology resolution can still find them as sources.
type UnitKind struct {
	Mixer     *MixerUnitDescriptor
	Feature   *FeatureUnitDescriptor
	Selector  *RecognisedUnit
	Processing *RecognisedUnit
	Extension *RecognisedUnit
}

// RecognisedUnit is a unit whose subtype the parser does not model beyond
// its identity: enough to resolve as a topology source, nothing more.
type RecognisedUnit struct {
	UnitID  uint8
	Subtype ACSubtype
}

// Unit is a parsed AC unit descriptor: an id plus the variant payload.
type Unit struct {
	UnitID uint8
	Kind   UnitKind
}

// SourceIDs returns the ids this unit draws audio from. Units the parser
// does not model in detail (selector/processing/extension) report no
// sources: only feature and mixer units are modelled in detail.
func (u *Unit) SourceIDs() []uint8 {
	switch {
	case u.Kind.Feature != nil:
		return []uint8{u.Kind.Feature.SourceID}
	case u.Kind.Mixer != nil:
		return u.Kind.Mixer.SourceID
	default:
		return nil
	}
}
