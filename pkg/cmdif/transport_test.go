package cmdif

import (
	"context"
	"errors"
	"sync"

	"github.com/arsdkgo/arsdkctrl/pkg/transport"
)

// pipeTransport is an in-memory transport.Transport test double: a pair of
// pipeTransports linked by newTransportPipe deliver every Send on one end
// to the other's Recv, standing in for a real UDP pair or mux channel.
type pipeTransport struct {
	out chan transport.Frame
	in  chan transport.Frame

	mu     sync.Mutex
	closed bool

	// drop, when set, causes Send to silently swallow the frame instead of
	// delivering it — used to simulate an ack-dropping peer.
	drop func(transport.Frame) bool
}

func newTransportPipe() (a, b *pipeTransport) {
	ab := make(chan transport.Frame, 64)
	ba := make(chan transport.Frame, 64)
	a = &pipeTransport{out: ab, in: ba}
	b = &pipeTransport{out: ba, in: ab}
	return a, b
}

func (p *pipeTransport) Send(ctx context.Context, f transport.Frame) error {
	p.mu.Lock()
	closed := p.closed
	drop := p.drop
	p.mu.Unlock()
	if closed {
		return errors.New("pipeTransport: closed")
	}
	if drop != nil && drop(f) {
		return nil
	}
	select {
	case p.out <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeTransport) Recv(ctx context.Context) (transport.Frame, error) {
	select {
	case f := <-p.in:
		return f, nil
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	}
}

func (p *pipeTransport) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
