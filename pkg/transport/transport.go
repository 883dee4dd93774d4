// Package transport defines the frame-level contract the command interface
// (pkg/cmdif) is built against. The concrete wire framing of the UDP command
// transport is explicitly delegated to an external module by the spec this
// module follows: this package only fixes the fields a frame must carry
// {queue-id, seq, payload}, and the two concrete carriers, pkg/backend/net
// (a UDP socket pair) and pkg/backend/mux (a pkg/mux Channel), satisfy it.
package transport

import "context"

// Frame is one command-interface datagram: a queue selector, an 8-bit
// sequence number and an opaque payload. Sequence wraparound and ack-queue
// offset arithmetic live in pkg/cmdif, not here.
type Frame struct {
	QueueID uint8
	Seq     uint8
	Payload []byte
}

// Transport moves Frames between the controller and one connected device.
// Implementations do not interpret payload contents.
type Transport interface {
	// Send writes one frame. It may block only on backpressure from the
	// underlying carrier (socket buffer, mux channel send), never on a
	// round-trip to the peer.
	Send(ctx context.Context, f Frame) error

	// Recv blocks until a frame arrives, ctx is done, or the transport
	// closes.
	Recv(ctx context.Context) (Frame, error)

	// Close releases the underlying carrier. Further Send/Recv calls
	// return an error.
	Close() error
}
