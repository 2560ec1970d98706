package uac

import (
	"errors"
	"testing"
)

func TestErrorUnwrapAndAs(t *testing.T) {
	cause := errors.New("control transfer timed out")
	err := newError(UsbError, "GetFeatureMasterVolume", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through Unwrap to the cause")
	}

	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatal("expected errors.As to recover the *Error")
	}
	if ue.Kind != UsbError {
		t.Errorf("Kind = %v, want %v", ue.Kind, UsbError)
	}
	if ue.Op != "GetFeatureMasterVolume" {
		t.Errorf("Op = %q, want %q", ue.Op, "GetFeatureMasterVolume")
	}
}

func TestErrorStringWithAndWithoutCause(t *testing.T) {
	withCause := newError(InvalidArgument, "SetAltSetting", errors.New("index out of range"))
	if got := withCause.Error(); got == "" {
		t.Fatal("expected a non-empty error string")
	}

	bare := newError(InvalidDevice, "ParseAudioControl", nil)
	if got := bare.Error(); got != "uac: ParseAudioControl: invalid device" {
		t.Errorf("Error() = %q, want %q", got, "uac: ParseAudioControl: invalid device")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		InvalidDevice:       "invalid device",
		UsbError:            "usb error",
		InvalidArgument:     "invalid argument",
		StreamStartFailure:  "stream start failure",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
