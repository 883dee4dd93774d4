package cmdif

import (
	"bytes"
	"testing"
)

func TestCommandEncodeDecodeRoundTrip(t *testing.T) {
	c := Command{ProjectID: 7, ClassID: 3, CommandID: 0x1234, Buffer: []byte("pitch=10")}
	decoded, err := DecodeCommand(c.Encode())
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if decoded.ProjectID != c.ProjectID || decoded.ClassID != c.ClassID || decoded.CommandID != c.CommandID {
		t.Fatalf("decoded envelope = %+v, want matching %+v", decoded, c)
	}
	if !bytes.Equal(decoded.Buffer, c.Buffer) {
		t.Fatalf("decoded buffer = %q, want %q", decoded.Buffer, c.Buffer)
	}
}

func TestDecodeCommandTooShort(t *testing.T) {
	if _, err := DecodeCommand([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding a too-short envelope")
	}
}
