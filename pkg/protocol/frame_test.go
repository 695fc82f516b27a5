package protocol

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := EncodeNotify(&Notify{HostRef: 1, Kind: TargetScreen, Width: 800})
	data, err := NewFrame(FrameNotify, payload).Encode()
	if err != nil {
		t.Fatalf("Encode error = %v", err)
	}

	if len(data) != FrameHeaderSize+len(payload) {
		t.Fatalf("encoded length = %d, want %d", len(data), FrameHeaderSize+len(payload))
	}
	if data[0] != byte(FrameNotify) {
		t.Errorf("type byte = %x, want %x", data[0], byte(FrameNotify))
	}

	f, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame error = %v", err)
	}
	if f.Type != FrameNotify || string(f.Payload) != string(payload) {
		t.Errorf("DecodeFrame = %+v", f)
	}
}

func TestFrameTooLarge(t *testing.T) {
	_, err := NewFrame(FrameCall, make([]byte, MaxPayloadSize+1)).Encode()
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Encode error = %v, want ErrFrameTooLarge", err)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0x01, 0x00}, io.ErrUnexpectedEOF},
		{"short payload", []byte{0x01, 0x00, 0x00, 0x05, 0x01}, io.ErrUnexpectedEOF},
		{"invalid type", []byte{0x7f, 0x00, 0x00, 0x00}, ErrInvalidFrameType},
		{"trailing", []byte{0x01, 0x00, 0x00, 0x00, 0x00}, ErrTrailingBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("DecodeFrame error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFrameTypeString(t *testing.T) {
	if FrameCall.String() != "Call" || FrameNotify.String() != "Notify" || FrameType(0x99).String() != "Unknown" {
		t.Error("unexpected FrameType strings")
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	ch := NewClientHello("Mozilla/5.0", 1280)
	gotCH, err := DecodeClientHello(EncodeClientHello(ch))
	if err != nil {
		t.Fatalf("DecodeClientHello error = %v", err)
	}
	if *gotCH != *ch {
		t.Errorf("DecodeClientHello = %+v, want %+v", *gotCH, *ch)
	}
	if !gotCH.Version.Compatible() {
		t.Error("current version should be compatible")
	}

	sh := &ServerHello{Status: HandshakeOK, DebounceMillis: 250, ServerTime: 1700000000000}
	gotSH, err := DecodeServerHello(EncodeServerHello(sh))
	if err != nil {
		t.Fatalf("DecodeServerHello error = %v", err)
	}
	if *gotSH != *sh {
		t.Errorf("DecodeServerHello = %+v, want %+v", *gotSH, *sh)
	}
}

func TestVersionCompatibility(t *testing.T) {
	if (ProtocolVersion{Major: CurrentVersion.Major, Minor: 9}).Compatible() != true {
		t.Error("minor version bump should stay compatible")
	}
	if (ProtocolVersion{Major: CurrentVersion.Major + 1}).Compatible() {
		t.Error("major version bump should be incompatible")
	}
}

func TestControlRoundTrip(t *testing.T) {
	tests := []Control{
		{Type: ControlPing, Timestamp: 42},
		{Type: ControlPong, Timestamp: 43},
		{Type: ControlClose, Reason: CloseGoingAway, Message: "unload"},
	}

	for _, want := range tests {
		got, err := DecodeControl(EncodeControl(&want))
		if err != nil {
			t.Fatalf("DecodeControl error = %v", err)
		}
		if *got != want {
			t.Errorf("DecodeControl = %+v, want %+v", *got, want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	em := NewError(ErrInvalidCall, "bad method")
	got, err := DecodeErrorMessage(EncodeErrorMessage(em))
	if err != nil {
		t.Fatalf("DecodeErrorMessage error = %v", err)
	}
	if *got != *em {
		t.Errorf("DecodeErrorMessage = %+v, want %+v", *got, *em)
	}
	if got.Error() != "InvalidCall: bad method" {
		t.Errorf("Error() = %q", got.Error())
	}

	got.Fatal = true
	if !strings.HasPrefix(got.Error(), "fatal: ") {
		t.Errorf("fatal Error() = %q", got.Error())
	}
}
