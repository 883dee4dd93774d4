// Package mux provides the channel-multiplexed byte-stream abstraction that
// the mux backend and mux discovery variants build on (spec §1, §4.4, §4.7).
// In the original library the mux is a pre-established, externally supplied
// multiplexer; here it is grounded on the kept pkg/mqtt0 client/broker pair,
// with one MQTT topic standing in for one mux channel. A Conn multiplexes any
// number of named Channels over a single underlying connection, same as the
// real thing multiplexes channels over a single USB/network link.
package mux

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/mqtt0"
)

// Channel is one multiplexed byte-stream within a Conn. Frames sent on a
// Channel are delivered whole to the peer's Recv on the channel of the same
// name; there is no further framing inside a Channel's payload.
type Channel interface {
	// Name returns the channel name this Channel was opened for.
	Name() string

	// Send writes a single frame to the peer.
	Send(ctx context.Context, frame []byte) error

	// Recv blocks until a frame arrives, ctx is done, or the channel closes.
	Recv(ctx context.Context) ([]byte, error)

	// Close stops delivering frames on this channel. It does not close the
	// underlying Conn.
	Close() error
}

// Conn is one end of a multiplexed connection. The client backend (pkg/backend/mux)
// and the mux discovery variant both open channels on a Conn to exchange
// control-channel requests and tcp-proxy data.
type Conn interface {
	// OpenChannel returns the Channel named name, creating its local
	// bookkeeping on first use. Opening the same name twice returns the same
	// Channel.
	OpenChannel(name string) (Channel, error)

	// RemoteID identifies the peer (the device's mux client id).
	RemoteID() string

	// Close tears down the underlying connection and all its channels.
	Close() error
}

// topicFor returns the mqtt0 topic that carries channel name under prefix.
// A channel frame travels as the bare publish payload, with no wire framing
// of its own.
func topicFor(prefix, name string) string {
	return prefix + "/" + name
}

const defaultTopicPrefix = "arsdk/mux"

// clientConn is the Conn implementation used by the mux backend: it dials out
// to a mux-capable device and demultiplexes inbound publishes into per-channel
// buffered queues.
type clientConn struct {
	cli    *mqtt0.Client
	prefix string

	mu       sync.Mutex
	channels map[string]*clientChannel
	closed   bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// DialConfig configures a client-side Dial.
type DialConfig struct {
	// Addr is the broker address, e.g. "tcp://192.168.42.1:1883".
	Addr string
	// ClientID identifies this controller to the peer.
	ClientID string
	// TopicPrefix namespaces channel topics; defaults to "arsdk/mux".
	TopicPrefix string
}

// Dial establishes a Conn to a mux-capable peer.
func Dial(ctx context.Context, cfg DialConfig) (Conn, error) {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	cli, err := mqtt0.Connect(ctx, mqtt0.ClientConfig{
		Addr:     cfg.Addr,
		ClientID: cfg.ClientID,
	})
	if err != nil {
		return nil, fmt.Errorf("mux: dial: %w", err)
	}
	cctx, cancel := context.WithCancel(context.Background())
	c := &clientConn{
		cli:      cli,
		prefix:   prefix,
		channels: make(map[string]*clientChannel),
		cancel:   cancel,
	}
	c.wg.Add(1)
	go c.pump(cctx)
	return c, nil
}

func (c *clientConn) pump(ctx context.Context) {
	defer c.wg.Done()
	for {
		msg, err := c.cli.Recv(ctx)
		if err != nil {
			return
		}
		name := msg.Topic
		if len(name) > len(c.prefix)+1 && name[:len(c.prefix)+1] == c.prefix+"/" {
			name = name[len(c.prefix)+1:]
		}
		c.mu.Lock()
		ch, ok := c.channels[name]
		c.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case ch.in <- msg.Payload:
		case <-ch.closed:
		}
	}
}

func (c *clientConn) OpenChannel(name string) (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("mux: conn closed")
	}
	if ch, ok := c.channels[name]; ok {
		return ch, nil
	}
	ch := &clientChannel{
		name:   name,
		conn:   c,
		topic:  topicFor(c.prefix, name),
		in:     make(chan []byte, 32),
		closed: make(chan struct{}),
	}
	if err := c.cli.Subscribe(context.Background(), ch.topic); err != nil {
		return nil, fmt.Errorf("mux: subscribe %s: %w", ch.topic, err)
	}
	c.channels[name] = ch
	return ch, nil
}

func (c *clientConn) RemoteID() string { return c.cli.ClientID() }

func (c *clientConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, ch := range c.channels {
		close(ch.closed)
	}
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
	return c.cli.Close()
}

type clientChannel struct {
	name   string
	conn   *clientConn
	topic  string
	in     chan []byte
	closed chan struct{}
}

func (ch *clientChannel) Name() string { return ch.name }

func (ch *clientChannel) Send(ctx context.Context, frame []byte) error {
	return ch.conn.cli.Publish(ctx, ch.topic, frame)
}

func (ch *clientChannel) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-ch.in:
		return frame, nil
	case <-ch.closed:
		return nil, fmt.Errorf("mux: channel %q closed", ch.name)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ch *clientChannel) Close() error {
	ch.conn.mu.Lock()
	delete(ch.conn.channels, ch.name)
	ch.conn.mu.Unlock()
	return nil
}

// RecvTimeout is a convenience wrapper used by the polling-style callers in
// pkg/backend/mux and pkg/discovery/mux.
func RecvTimeout(ctx context.Context, ch Channel, timeout time.Duration) ([]byte, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	frame, err := ch.Recv(tctx)
	if err == context.DeadlineExceeded {
		return nil, nil
	}
	return frame, err
}
