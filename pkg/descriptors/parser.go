package descriptors

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// AudioControlInterface is the parsed result of one USB Audio Class
// AudioControl interface: the header plus every terminal and unit declared
// in its class-specific descriptor block.
type AudioControlInterface struct {
	InterfaceNumber uint8
	Header          *ACHeaderDescriptor
	InputTerminals  []*InputTerminalDescriptor
	OutputTerminals []*OutputTerminalDescriptor
	Units           []*Unit
}

// StreamingInterfaceNumbers returns the AudioStreaming/MIDIStreaming
// interface numbers this AudioControl interface's header names. A
// streaming interface absent from this list is not part of this audio
// function and is silently ignored by callers walking the configuration.
func (ac *AudioControlInterface) StreamingInterfaceNumbers() []uint8 {
	if ac.Header == nil {
		return nil
	}
	return ac.Header.InterfaceNr
}

// NamesInterface reports whether ifnum belongs to this audio function.
func (ac *AudioControlInterface) NamesInterface(ifnum uint8) bool {
	return ac.Header != nil && ac.Header.namesInterface(ifnum)
}

// FindUnit returns the unit with the given id, or nil.
func (ac *AudioControlInterface) FindUnit(id uint8) *Unit {
	for _, u := range ac.Units {
		if u.UnitID == id {
			return u
		}
	}
	return nil
}

// FindInputTerminal returns the input terminal with the given id, or nil.
func (ac *AudioControlInterface) FindInputTerminal(id uint8) *InputTerminalDescriptor {
	for _, t := range ac.InputTerminals {
		if t.TerminalID == id {
			return t
		}
	}
	return nil
}

// FindOutputTerminal returns the output terminal with the given id, or nil.
func (ac *AudioControlInterface) FindOutputTerminal(id uint8) *OutputTerminalDescriptor {
	for _, t := range ac.OutputTerminals {
		if t.TerminalID == id {
			return t
		}
	}
	return nil
}

// ParseAudioControl walks the class-specific descriptor block of a USB
// AudioControl interface (the alternate setting's Extra bytes) and builds
// the parsed terminal/unit set. A malformed record (bLength of zero, or a
// record claiming more bytes than remain) truncates the walk rather than
// erroring the whole interface, since everything already parsed is still
// usable. The first class-specific interface record must be the header;
// any other subtype in that position is an error.
func ParseAudioControl(ifnum uint8, buf []byte) (*AudioControlInterface, error) {
	ac := &AudioControlInterface{InterfaceNumber: ifnum}

	for i := 0; i+2 <= len(buf); {
		length := int(buf[i])
		if length < 3 || i+length > len(buf) {
			logrus.WithFields(logrus.Fields{"interface": ifnum, "offset": i, "remaining": len(buf) - i}).Warn("uac: truncating malformed audio control descriptor block")
			break
		}
		block := buf[i : i+length]
		i += length

		if ClassSpecificDescriptorType(block[1]) != ClassSpecificDescriptorTypeInterface {
			continue
		}
		subtype := ACSubtype(block[2])
		if ac.Header == nil && subtype != ACSubtypeHeader {
			return ac, fmt.Errorf("audio control interface %d: first descriptor has subtype 0x%02x, want a header", ifnum, byte(subtype))
		}

		switch subtype {
		case ACSubtypeHeader:
			if ac.Header != nil {
				// first header wins; a duplicate is ignored
				logrus.WithField("interface", ifnum).Debug("uac: ignoring duplicate AC header descriptor")
				continue
			}
			h := &ACHeaderDescriptor{}
			if err := h.UnmarshalBinary(block); err != nil {
				continue
			}
			ac.Header = h

		case ACSubtypeInputTerminal:
			t := &InputTerminalDescriptor{}
			if err := t.UnmarshalBinary(block); err != nil {
				continue
			}
			ac.InputTerminals = append(ac.InputTerminals, t)

		case ACSubtypeOutputTerminal:
			t := &OutputTerminalDescriptor{}
			if err := t.UnmarshalBinary(block); err != nil {
				continue
			}
			ac.OutputTerminals = append(ac.OutputTerminals, t)

		case ACSubtypeMixerUnit:
			m := &MixerUnitDescriptor{}
			if err := m.UnmarshalBinary(block); err != nil {
				continue
			}
			ac.Units = append(ac.Units, &Unit{UnitID: m.UnitID, Kind: UnitKind{Mixer: m}})

		case ACSubtypeFeatureUnit:
			f := &FeatureUnitDescriptor{}
			if err := f.UnmarshalBinary(block); err != nil {
				continue
			}
			ac.Units = append(ac.Units, &Unit{UnitID: f.UnitID, Kind: UnitKind{Feature: f}})

		case ACSubtypeSelectorUnit:
			ac.Units = append(ac.Units, &Unit{UnitID: block[3], Kind: UnitKind{Selector: &RecognisedUnit{UnitID: block[3], Subtype: subtype}}})

		case ACSubtypeProcessingUnit:
			ac.Units = append(ac.Units, &Unit{UnitID: block[3], Kind: UnitKind{Processing: &RecognisedUnit{UnitID: block[3], Subtype: subtype}}})

		case ACSubtypeExtensionUnit:
			ac.Units = append(ac.Units, &Unit{UnitID: block[3], Kind: UnitKind{Extension: &RecognisedUnit{UnitID: block[3], Subtype: subtype}}})
		}
	}

	if ac.Header == nil {
		return ac, fmt.Errorf("audio control interface %d: missing header descriptor", ifnum)
	}
	return ac, nil
}

// RawAltSetting is the minimal view of one alternate setting of an
// audio-streaming interface a USB access layer needs to provide: alt 0 is
// never passed in, since it carries no class-specific or endpoint data.
type RawAltSetting struct {
	Index    uint8
	Extra    []byte // class-specific AS/endpoint descriptor bytes
	Endpoint EndpointInfo
}

// ParseAudioStreaming builds an AudioStreamingInterface from the raw
// per-alternate-setting descriptor blocks of one USB audio-streaming
// interface.
func ParseAudioStreaming(ifnum uint8, raws []RawAltSetting) (*AudioStreamingInterface, error) {
	si := &AudioStreamingInterface{InterfaceNumber: ifnum}

	for _, raw := range raws {
		if !raw.Endpoint.IsIsochronous() {
			continue
		}
		alt := &AlternateSetting{Index: raw.Index, Endpoint: raw.Endpoint}

		var sawGeneral bool

		for i := 0; i+2 <= len(raw.Extra); {
			length := int(raw.Extra[i])
			if length < 3 || i+length > len(raw.Extra) {
				logrus.WithFields(logrus.Fields{"interface": ifnum, "altSetting": raw.Index, "offset": i}).Warn("uac: truncating malformed audio streaming descriptor block")
				break
			}
			block := raw.Extra[i : i+length]
			i += length

			switch ClassSpecificDescriptorType(block[1]) {
			case ClassSpecificDescriptorTypeInterface:
				switch ASSubtype(block[2]) {
				case ASSubtypeGeneral:
					if err := alt.General.UnmarshalBinary(block); err == nil {
						sawGeneral = true
					}
				case ASSubtypeFormatType:
					if len(block) < 5 {
						continue
					}
					ft := FormatType(block[3])
					spec, err := parseFormatType(ft, block)
					if err != nil {
						continue
					}
					alt.Format = spec
				}
			case ClassSpecificDescriptorTypeEndpoint:
				if len(block) >= 3 && block[2] == EPGeneral {
					_ = alt.EndpointEx.UnmarshalBinary(block)
				}
			}
		}

		if !sawGeneral || (alt.Format.channelled() == nil && alt.Format.TypeII == nil) {
			logrus.WithFields(logrus.Fields{"interface": ifnum, "altSetting": raw.Index}).Debug("uac: discarding alt-setting missing a usable GENERAL/FORMAT_TYPE descriptor")
			continue
		}
		si.AlternateSettings = append(si.AlternateSettings, alt)
	}

	return si, nil
}
