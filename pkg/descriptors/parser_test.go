package descriptors

import "testing"

// header + one input terminal (mic) + one feature unit + one output
// terminal (usb streaming), interface 1 is the sole streaming interface.
func minimalControlBlock() []byte {
	return []byte{
		// AC header: length 9, type 0x24, subtype 0x01, bcdADC 0x0100,
		// wTotalLength 0 (not checked by the parser), bInCollection 1,
		// baInterfaceNr 1
		9, 0x24, 0x01, 0x00, 0x01, 0x00, 0x00, 0x01, 0x01,
		// input terminal: length 12, type 0x24, subtype 0x02, id 1,
		// terminal type 0x0201 (microphone), assoc 0, channels 1,
		// chan config 0, chan names 0, terminal 0
		12, 0x24, 0x02, 0x01, 0x01, 0x02, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		// feature unit: length 9, type 0x24, subtype 0x06, id 2, source 1,
		// control size 1, controls[master]=mute|volume, iFeature 0
		9, 0x24, 0x06, 0x02, 0x01, 0x01, 0x03, 0x00, 0x00,
		// output terminal: length 9, type 0x24, subtype 0x03, id 3,
		// terminal type 0x0101 (usb streaming), assoc 0, source 2, terminal 0
		9, 0x24, 0x03, 0x03, 0x01, 0x01, 0x00, 0x02, 0x00,
	}
}

func TestParseAudioControlMinimalTopology(t *testing.T) {
	ac, err := ParseAudioControl(0, minimalControlBlock())
	if err != nil {
		t.Fatalf("ParseAudioControl: %v", err)
	}
	if ac.Header == nil {
		t.Fatal("expected header")
	}
	if got := ac.Header.InterfaceNr; len(got) != 1 || got[0] != 1 {
		t.Fatalf("InterfaceNr = %v, want [1]", got)
	}
	if !ac.NamesInterface(1) {
		t.Fatal("expected interface 1 to be named by header")
	}
	if ac.NamesInterface(2) {
		t.Fatal("did not expect interface 2 to be named by header")
	}
	if len(ac.InputTerminals) != 1 || ac.InputTerminals[0].TerminalType != TerminalTypeMicrophone {
		t.Fatalf("unexpected input terminals: %+v", ac.InputTerminals)
	}
	if len(ac.OutputTerminals) != 1 || ac.OutputTerminals[0].SourceID != 2 {
		t.Fatalf("unexpected output terminals: %+v", ac.OutputTerminals)
	}
	u := ac.FindUnit(2)
	if u == nil || u.Kind.Feature == nil {
		t.Fatal("expected feature unit 2")
	}
	if !u.Kind.Feature.HasControl(0, MuteControl) {
		t.Fatal("expected master channel to support mute")
	}
	if !u.Kind.Feature.HasControl(0, VolumeControl) {
		t.Fatal("expected master channel to support volume")
	}
	if u.Kind.Feature.HasControl(0, BassControl) {
		t.Fatal("did not expect master channel to support bass")
	}
}

func TestParseAudioControlTruncatesOnMalformedRecord(t *testing.T) {
	buf := minimalControlBlock()
	buf[21] = 0 // zero-length record where the feature unit starts
	ac, err := ParseAudioControl(0, buf)
	if err != nil {
		t.Fatalf("ParseAudioControl: %v", err)
	}
	if len(ac.InputTerminals) != 1 {
		t.Fatalf("expected the input terminal parsed before the break to survive, got %+v", ac.InputTerminals)
	}
	if len(ac.Units) != 0 || len(ac.OutputTerminals) != 0 {
		t.Fatalf("expected nothing past the malformed record, got units=%+v outputs=%+v", ac.Units, ac.OutputTerminals)
	}
}

func discreteRateAltSetting(index uint8, channels, bitRes uint8, rates []uint32, addr uint8, maxPacket uint16) RawAltSetting {
	extra := []byte{
		// AS general: length 7, type 0x24, subtype 0x01, terminal link 3,
		// delay 0, format tag 1 (PCM)
		7, 0x24, 0x01, 0x03, 0x00, 0x01, 0x00,
	}
	formatLen := 8 + len(rates)*3
	format := []byte{byte(formatLen), 0x24, 0x02, 0x01, channels, 2, bitRes, byte(len(rates))}
	for _, r := range rates {
		format = append(format, byte(r), byte(r>>8), byte(r>>16))
	}
	extra = append(extra, format...)
	extra = append(extra, []byte{7, 0x25, 0x01, 0x01, 0x00, 0x00, 0x00}...)

	return RawAltSetting{
		Index: index,
		Extra: extra,
		Endpoint: EndpointInfo{
			Address:       addr,
			Attributes:    transferTypeIsochronous,
			MaxPacketSize: maxPacket,
		},
	}
}

func TestParseAudioStreamingDiscreteRates(t *testing.T) {
	raw := discreteRateAltSetting(1, 2, 16, []uint32{44100, 48000}, 0x81, 192)
	si, err := ParseAudioStreaming(1, []RawAltSetting{raw})
	if err != nil {
		t.Fatalf("ParseAudioStreaming: %v", err)
	}
	if len(si.AlternateSettings) != 1 {
		t.Fatalf("expected 1 alt setting, got %d", len(si.AlternateSettings))
	}
	alt := si.AlternateSettings[0]
	if alt.General.TerminalLink != 3 || alt.General.FormatTag != FormatTagPCM {
		t.Fatalf("unexpected general descriptor: %+v", alt.General)
	}
	f := alt.Format.Channelled()
	if f == nil {
		t.Fatal("expected a channelled format")
	}
	if f.NrChannels != 2 || f.BitResolution != 16 {
		t.Fatalf("unexpected format: %+v", f)
	}
	if !f.Rates.Contains(44100) || !f.Rates.Contains(48000) || f.Rates.Contains(96000) {
		t.Fatalf("unexpected rate set: %+v", f.Rates)
	}
	if cfg, ok := si.QueryConfig(FormatTagPCM, 2, 48000); !ok || cfg.SampleRate != 48000 || cfg.EndpointAddress != 0x81 {
		t.Fatalf("QueryConfig(2, 48000) = %+v, %v", cfg, ok)
	}
	if _, ok := si.QueryConfig(FormatTagPCM, 2, 96000); ok {
		t.Fatal("did not expect 96kHz to be offered")
	}
}

func TestParseAudioStreamingIgnoresNonIsochronousAltSetting(t *testing.T) {
	raw := discreteRateAltSetting(1, 2, 16, []uint32{48000}, 0x02, 192)
	raw.Endpoint.Attributes = 0x02 // bulk, not isochronous
	si, err := ParseAudioStreaming(1, []RawAltSetting{raw})
	if err != nil {
		t.Fatalf("ParseAudioStreaming: %v", err)
	}
	if len(si.AlternateSettings) != 0 {
		t.Fatalf("expected non-isochronous alt setting to be dropped, got %+v", si.AlternateSettings)
	}
}
