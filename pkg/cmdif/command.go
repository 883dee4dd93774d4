package cmdif

import (
	"encoding/binary"
	"fmt"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
)

// Command is a typed message: project id, class id, command id and an
// opaque argument buffer, plus the buffer_type that selects its transmit
// queue (spec §3 "Command"). The concrete on-wire encoding of command
// arguments is assumed generated from an IDL and out of scope for this
// module; Encode/Decode below only fix the small envelope
// {project, class, command-id} this package needs to frame a Command onto a
// transport.Frame payload and back.
type Command struct {
	ProjectID  uint8
	ClassID    uint8
	CommandID  uint16
	Buffer     []byte
	BufferType arsdk.BufferType
}

// Encode serialises the command envelope plus argument buffer. Layout:
// project(1) class(1) command-id(2 BE) buffer(rest).
func (c Command) Encode() []byte {
	out := make([]byte, 4+len(c.Buffer))
	out[0] = c.ProjectID
	out[1] = c.ClassID
	binary.BigEndian.PutUint16(out[2:4], c.CommandID)
	copy(out[4:], c.Buffer)
	return out
}

// DecodeCommand parses bytes produced by Command.Encode. The BufferType is
// not recoverable from the wire form (it only ever governed queue
// selection on the sender's side), so it's left zero-valued; callers that
// need it already know which queue the frame arrived on.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) < 4 {
		return Command{}, fmt.Errorf("cmdif: command envelope too short: %d bytes", len(b))
	}
	return Command{
		ProjectID: b[0],
		ClassID:   b[1],
		CommandID: binary.BigEndian.Uint16(b[2:4]),
		Buffer:    append([]byte(nil), b[4:]...),
	}, nil
}
