package logger

import (
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Event: EventCmdAck, InstanceID: 7, Type: 2, Seq: 3, Count: 1}
	payload := map[string]any{"queue": "with-ack"}

	if err := WriteFrame(&buf, 0x01, h, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.ChunkID != 0x01 {
		t.Fatalf("ChunkID = %v, want 0x01", f.ChunkID)
	}
	if f.Header.Event != EventCmdAck || f.Header.InstanceID != 7 || f.Header.Seq != 3 {
		t.Fatalf("Header = %+v", f.Header)
	}

	var decoded map[string]any
	if err := DecodePayload(f, &decoded); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if decoded["queue"] != "with-ack" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestReadFrameAcceptsLegacyTag(t *testing.T) {
	var buf bytes.Buffer
	if err := writeTag(&buf, LegacyTag); err != nil {
		t.Fatalf("writeTag: %v", err)
	}
	buf.WriteByte(0x00)
	for i := 0; i < 6; i++ {
		buf.Write([]byte{0, 0, 0, 0})
	}

	if _, err := ReadFrame(&buf); err != nil {
		t.Fatalf("ReadFrame with legacy tag: %v", err)
	}
}

func TestAnonymizeCommandDropsWifiSecurityKey(t *testing.T) {
	cmd := RawCommand{ProjectID: 1, ClassID: 2, CommandID: 3, Buffer: []byte("key=secret-wifi-key")}
	out := AnonymizeCommand(cmd)

	if !out.Redacted || !out.Dropped {
		t.Fatalf("WiFi security command must be redacted and dropped, got %+v", out)
	}
	if out.Buffer != nil {
		t.Fatalf("Buffer = %q, want nil", out.Buffer)
	}
	if out.ProjectID != 1 || out.ClassID != 2 || out.CommandID != 3 {
		t.Fatalf("envelope fields must survive redaction, got %+v", out)
	}
}

func TestAnonymizeCommandDropsGenericCustomCommand(t *testing.T) {
	// register_apc_token is exactly the kind of generic custom command
	// that would need msghub decoding to tell apart from a harmless one;
	// without that decoder every generic command is dropped.
	cmd := RawCommand{ProjectID: 9, ClassID: 250, CommandID: 0, Buffer: []byte("register_apc_token payload")}
	out := AnonymizeCommand(cmd)

	if !out.Redacted || !out.Dropped {
		t.Fatalf("generic custom command must be redacted and dropped, got %+v", out)
	}
	if out.Buffer != nil {
		t.Fatalf("Buffer = %q, want nil", out.Buffer)
	}
}

func TestAnonymizeCommandDropsUnclassifiedBuffer(t *testing.T) {
	cmd := RawCommand{ProjectID: 1, ClassID: 2, CommandID: 3, Buffer: []byte("payload")}
	out := AnonymizeCommand(cmd)

	if !out.Redacted || !out.Dropped {
		t.Fatal("without a command-decoding registry, every command must be redacted and dropped")
	}
	if out.Buffer != nil {
		t.Fatalf("Buffer = %q, want nil", out.Buffer)
	}
}

func TestRecorderLogCmdAssignsSequentialSeq(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf, nil)

	rec.LogCmd(1, RawCommand{ProjectID: 1, CommandID: 3})
	rec.LogCmd(1, RawCommand{ProjectID: 1, CommandID: 4})

	f1, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame 1: %v", err)
	}
	f2, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame 2: %v", err)
	}
	if f1.Header.Seq != 0 || f2.Header.Seq != 1 {
		t.Fatalf("seqs = %d, %d; want 0, 1", f1.Header.Seq, f2.Header.Seq)
	}
}

func TestRecorderLogPackStatusIsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf, nil)

	rec.LogPackStatus(1, EventPackSent)

	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Header.Event != EventPackSent {
		t.Fatalf("Event = %v", f.Header.Event)
	}
}
