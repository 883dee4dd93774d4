package logger

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
)

// Tag is the current header tag (spec §6 "Header tag is the literal ASCII
// string arsdk-3").
const Tag = "arsdk-3"

// LegacyTag must also be accepted as v3 on read (spec §6, "historical
// bug"); this writer never emits it.
const LegacyTag = "arsdk-ARSDK_LOG_VERSION"

// Header is the fixed 6×u32 frame header that follows the tag and
// one-byte chunk id (spec §6 "Binary framing").
type Header struct {
	Event      Event
	InstanceID uint32
	Type       uint32
	Seq        uint32
	Count      uint32
	Size       uint32
}

// WriteFrame writes tag, chunkID, a Header with Size filled in from the
// msgpack encoding of payload, and the encoded payload itself.
func WriteFrame(w io.Writer, chunkID byte, h Header, payload any) error {
	encoded, err := msgpack.Marshal(payload)
	if err != nil {
		return arsdk.Wrap(arsdk.KindInvalidArgument, "logger: encode payload", err)
	}
	h.Size = uint32(len(encoded))

	bw := bufio.NewWriter(w)
	if err := writeTag(bw, Tag); err != nil {
		return err
	}
	if err := bw.WriteByte(chunkID); err != nil {
		return arsdk.Wrap(arsdk.KindIOFailed, "logger: write chunk id", err)
	}
	for _, field := range []uint32{uint32(h.Event), h.InstanceID, h.Type, h.Seq, h.Count, h.Size} {
		if err := binary.Write(bw, binary.BigEndian, field); err != nil {
			return arsdk.Wrap(arsdk.KindIOFailed, "logger: write header", err)
		}
	}
	if _, err := bw.Write(encoded); err != nil {
		return arsdk.Wrap(arsdk.KindIOFailed, "logger: write payload", err)
	}
	return bw.Flush()
}

// Frame is one decoded log entry.
type Frame struct {
	ChunkID byte
	Header  Header
	Payload []byte
}

// ReadFrame reads one frame from r, accepting either Tag or LegacyTag.
func ReadFrame(r io.Reader) (Frame, error) {
	tag, err := readTag(r)
	if err != nil {
		return Frame{}, err
	}
	if tag != Tag && tag != LegacyTag {
		return Frame{}, arsdk.Newf(arsdk.KindIOFailed, "logger: unrecognized header tag %q", tag)
	}

	var chunkID [1]byte
	if _, err := io.ReadFull(r, chunkID[:]); err != nil {
		return Frame{}, arsdk.Wrap(arsdk.KindIOFailed, "logger: read chunk id", err)
	}

	var raw [6]uint32
	for i := range raw {
		if err := binary.Read(r, binary.BigEndian, &raw[i]); err != nil {
			return Frame{}, arsdk.Wrap(arsdk.KindIOFailed, "logger: read header", err)
		}
	}
	h := Header{Event: Event(raw[0]), InstanceID: raw[1], Type: raw[2], Seq: raw[3], Count: raw[4], Size: raw[5]}

	payload := make([]byte, h.Size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, arsdk.Wrap(arsdk.KindIOFailed, "logger: read payload", err)
	}

	return Frame{ChunkID: chunkID[0], Header: h, Payload: payload}, nil
}

// DecodePayload unmarshals a frame's msgpack payload into v.
func DecodePayload(f Frame, v any) error {
	if err := msgpack.Unmarshal(f.Payload, v); err != nil {
		return arsdk.Wrap(arsdk.KindInvalidArgument, "logger: decode payload", err)
	}
	return nil
}

func writeTag(w io.Writer, tag string) error {
	if len(tag) > 255 {
		return arsdk.Newf(arsdk.KindInvalidArgument, "logger: tag %q too long", tag)
	}
	if _, err := w.Write([]byte{byte(len(tag))}); err != nil {
		return arsdk.Wrap(arsdk.KindIOFailed, "logger: write tag length", err)
	}
	if _, err := io.WriteString(w, tag); err != nil {
		return arsdk.Wrap(arsdk.KindIOFailed, "logger: write tag", err)
	}
	return nil
}

func readTag(r io.Reader) (string, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", arsdk.Wrap(arsdk.KindIOFailed, "logger: read tag length", err)
	}
	buf := make([]byte, n[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", arsdk.Wrap(arsdk.KindIOFailed, "logger: read tag", err)
	}
	return string(buf), nil
}
