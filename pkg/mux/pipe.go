package mux

import (
	"context"
	"fmt"
	"sync"
)

// NewPipe returns two in-process Conns wired directly to each other, with no
// mqtt0 broker in between. It's the in-process test double for a mux link,
// the same role pkg/chatgear's conn_pipe.go played for its MQTT transport:
// component tests can drive a Conn pair without a listening socket.
func NewPipe(localID, remoteID string) (a, b Conn) {
	p := &pipe{}
	a = &pipeConn{p: p, self: localID, peer: remoteID, side: 0}
	b = &pipeConn{p: p, self: remoteID, peer: localID, side: 1}
	return a, b
}

// pipe holds the shared per-channel queues for one NewPipe pair. side 0's
// outbound frames land in boxes[1][name] and vice versa.
type pipe struct {
	mu    sync.Mutex
	boxes [2]map[string]chan []byte
	once  sync.Once
}

func (p *pipe) init() {
	p.once.Do(func() {
		p.boxes[0] = make(map[string]chan []byte)
		p.boxes[1] = make(map[string]chan []byte)
	})
}

func (p *pipe) inbox(side int, name string) chan []byte {
	p.init()
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.boxes[side][name]
	if !ok {
		ch = make(chan []byte, 32)
		p.boxes[side][name] = ch
	}
	return ch
}

type pipeConn struct {
	p    *pipe
	self string
	peer string
	side int

	mu       sync.Mutex
	channels map[string]*pipeChannel
	closed   bool
}

func (c *pipeConn) OpenChannel(name string) (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("mux: pipe closed")
	}
	if c.channels == nil {
		c.channels = make(map[string]*pipeChannel)
	}
	if ch, ok := c.channels[name]; ok {
		return ch, nil
	}
	ch := &pipeChannel{
		name: name,
		// outbound frames go into the peer's inbox for this name
		out: c.p.inbox(1-c.side, name),
		in:  c.p.inbox(c.side, name),
	}
	c.channels[name] = ch
	return ch, nil
}

func (c *pipeConn) RemoteID() string { return c.peer }

func (c *pipeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type pipeChannel struct {
	name string
	out  chan []byte
	in   chan []byte
}

func (ch *pipeChannel) Name() string { return ch.name }

func (ch *pipeChannel) Send(ctx context.Context, frame []byte) error {
	select {
	case ch.out <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ch *pipeChannel) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-ch.in:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ch *pipeChannel) Close() error { return nil }
