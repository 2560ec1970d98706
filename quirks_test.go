package uac

import (
	"testing"

	"github.com/nExtCamera/libuac/pkg/descriptors"
)

func TestLookupQuirkKnownDevice(t *testing.T) {
	q, ok := lookupQuirk(0x534d, 0x2109)
	if !ok {
		t.Fatal("expected a quirk entry for the known vendor/product pair")
	}
	if !q.swapChannels {
		t.Error("expected this device's quirk to request channel swapping")
	}
	if q.mutate == nil {
		t.Fatal("expected a mutate function")
	}

	si := &descriptors.AudioStreamingInterface{
		AlternateSettings: []*descriptors.AlternateSetting{
			{Format: descriptors.FormatSpec{TypeI: &descriptors.FormatTypeI{NrChannels: 1}}},
		},
	}
	q.mutate(si)
	f := si.AlternateSettings[0].Format.Channelled()
	if f.NrChannels != 2 {
		t.Errorf("NrChannels = %d, want 2 after quirk mutation", f.NrChannels)
	}
	if !f.Rates.Contains(48000) {
		t.Error("expected the quirk to fix the rate set to 48kHz")
	}
}

func TestLookupQuirkUnknownDevice(t *testing.T) {
	if _, ok := lookupQuirk(0xffff, 0xffff); ok {
		t.Fatal("did not expect a quirk entry for an unlisted vendor/product pair")
	}
}
