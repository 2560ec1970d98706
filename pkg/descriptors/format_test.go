package descriptors

import "testing"

func TestVersionString(t *testing.T) {
	cases := []struct {
		bcd  BinaryCodedDecimal
		want string
	}{
		{0x0100, "1.00"},
		{0x0200, "2.00"},
		{0x0110, "1.10"},
	}
	for _, c := range cases {
		if got := c.bcd.VersionString(); got != c.want {
			t.Errorf("VersionString(%#04x) = %q, want %q", uint16(c.bcd), got, c.want)
		}
	}
}

func TestEncodeDecodeSamplingFrequencyRoundTrip(t *testing.T) {
	for _, rate := range []uint32{8000, 44100, 48000, 96000, 192000} {
		b := EncodeSamplingFrequency(rate)
		if len(b) != 3 {
			t.Fatalf("EncodeSamplingFrequency(%d) produced %d bytes, want 3", rate, len(b))
		}
		if got := DecodeSamplingFrequency(b); got != rate {
			t.Errorf("round trip for %d produced %d", rate, got)
		}
	}
}

func TestTerminalTypeMatchesFamily(t *testing.T) {
	if !TerminalTypeMicrophone.MatchesFamily(TerminalTypeInputUndefined) {
		t.Error("expected microphone to match the input-terminal wildcard family")
	}
	if TerminalTypeMicrophone.MatchesFamily(TerminalTypeOutputUndefined) {
		t.Error("did not expect microphone to match the output-terminal wildcard family")
	}
	if !TerminalTypeMicrophone.MatchesFamily(TerminalTypeMicrophone) {
		t.Error("expected an exact terminal type to match itself")
	}
	if TerminalTypeMicrophone.MatchesFamily(TerminalTypeSpeaker) {
		t.Error("did not expect microphone to match an unrelated exact terminal type")
	}
}

func TestRateSpecContinuousRange(t *testing.T) {
	r := RateSpec{Continuous: &ContinuousRange{Lower: 8000, Upper: 48000}}
	if !r.Contains(8000) || !r.Contains(48000) || !r.Contains(32000) {
		t.Error("expected the bounds and an interior rate to be contained")
	}
	if r.Contains(7999) || r.Contains(48001) {
		t.Error("did not expect rates outside the range to be contained")
	}
	if got := r.SampleRates(); len(got) != 2 || got[0] != 8000 || got[1] != 48000 {
		t.Fatalf("SampleRates() = %v, want [8000 48000]", got)
	}
	if got := r.First(); got != 8000 {
		t.Errorf("First() = %d, want 8000", got)
	}
}

func TestRateSpecDiscreteDeduplicatesAndSorts(t *testing.T) {
	r := RateSpec{Discrete: []uint32{48000, 44100, 48000}}
	got := r.SampleRates()
	want := []uint32{44100, 48000}
	if len(got) != len(want) {
		t.Fatalf("SampleRates() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SampleRates() = %v, want %v", got, want)
		}
	}
	if r.First() != 48000 {
		t.Errorf("First() = %d, want the first declared entry 48000", r.First())
	}
}

func TestAudioStreamingCapabilityQueriesSpanAlternateSettings(t *testing.T) {
	altA := discreteRateAltSetting(1, 2, 16, []uint32{44100, 48000}, 0x81, 192)
	altB := discreteRateAltSetting(2, 1, 24, []uint32{96000}, 0x81, 288)
	si, err := ParseAudioStreaming(1, []RawAltSetting{altA, altB})
	if err != nil {
		t.Fatalf("ParseAudioStreaming: %v", err)
	}

	if formats := si.AudioFormats(); len(formats) != 1 || formats[0] != FormatTagPCM {
		t.Fatalf("AudioFormats() = %v, want [PCM]", formats)
	}
	if channels := si.ChannelCounts(FormatTagAny); len(channels) != 2 || channels[0] != 1 || channels[1] != 2 {
		t.Fatalf("ChannelCounts() = %v, want [1 2]", channels)
	}
	if bits := si.BitResolutions(FormatTagAny); len(bits) != 2 || bits[0] != 16 || bits[1] != 24 {
		t.Fatalf("BitResolutions() = %v, want [16 24]", bits)
	}
	if rates := si.SampleRates(FormatTagAny); len(rates) != 3 {
		t.Fatalf("SampleRates() = %v, want 3 distinct rates", rates)
	}

	if _, ok := si.QueryConfig(FormatTagPCM, 1, 44100); ok {
		t.Fatal("did not expect 1 channel at 44.1kHz to be offered")
	}
	if cfg, ok := si.QueryConfig(FormatTagPCM, 1, 96000); !ok || cfg.AltSetting != 2 || cfg.BitResolution != 24 {
		t.Fatalf("QueryConfig(1, 96000) = %+v, %v", cfg, ok)
	}
}
