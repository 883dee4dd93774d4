package mux

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"

	"github.com/arsdkgo/arsdkctrl/pkg/mqtt0"
)

// Listener accepts mux Conns on the server side. It's what devicesim (and any
// other mux-capable peer under test) uses to stand in for the device end of
// the mux link, the same way mqtt0.Broker stands in for a real MQTT broker.
type Listener struct {
	ln     net.Listener
	broker *mqtt0.Broker
	prefix string

	mu      sync.Mutex
	conns   map[string]*serverConn
	accept  chan *serverConn
	closed  bool
}

// ListenConfig configures a server-side Listen.
type ListenConfig struct {
	// Network/Addr are passed to mqtt0.Listen ("tcp", "tls", "ws", "wss").
	Network string
	Addr    string
	// TLSConfig is required when Network is "tls" or "wss".
	TLSConfig *tls.Config
	// TopicPrefix namespaces channel topics; defaults to "arsdk/mux".
	TopicPrefix string
}

// Listen starts accepting mux Conns.
func Listen(cfg ListenConfig) (*Listener, error) {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	ln, err := mqtt0.Listen(cfg.Network, cfg.Addr, cfg.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("mux: listen: %w", err)
	}
	l := &Listener{
		ln:     ln,
		prefix: prefix,
		conns:  make(map[string]*serverConn),
		accept: make(chan *serverConn, 8),
	}
	l.broker = &mqtt0.Broker{
		Handler:      mqtt0.HandlerFunc(l.onMessage),
		OnConnect:    l.onConnect,
		OnDisconnect: l.onDisconnect,
	}
	go func() {
		_ = l.broker.Serve(ln)
	}()
	return l, nil
}

func (l *Listener) onConnect(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	sc := &serverConn{
		l:        l,
		remoteID: clientID,
		channels: make(map[string]*serverChannel),
		closed:   make(chan struct{}),
	}
	l.conns[clientID] = sc
	select {
	case l.accept <- sc:
	default:
	}
}

func (l *Listener) onDisconnect(clientID string) {
	l.mu.Lock()
	sc, ok := l.conns[clientID]
	delete(l.conns, clientID)
	l.mu.Unlock()
	if ok {
		close(sc.closed)
	}
}

func (l *Listener) onMessage(clientID string, msg *mqtt0.Message) {
	l.mu.Lock()
	sc, ok := l.conns[clientID]
	l.mu.Unlock()
	if !ok {
		return
	}
	name := msg.Topic
	if len(name) > len(l.prefix)+1 && name[:len(l.prefix)+1] == l.prefix+"/" {
		name = name[len(l.prefix)+1:]
	}
	sc.mu.Lock()
	ch, ok := sc.channels[name]
	sc.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch.in <- msg.Payload:
	case <-sc.closed:
	}
}

// Accept blocks until a peer connects or ctx is done.
func (l *Listener) Accept(ctx context.Context) (Conn, error) {
	select {
	case sc := <-l.accept:
		return sc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting new connections and tears down the broker.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	_ = l.broker.Close()
	return l.ln.Close()
}

type serverConn struct {
	l        *Listener
	remoteID string

	mu       sync.Mutex
	channels map[string]*serverChannel
	closed   chan struct{}
}

func (sc *serverConn) OpenChannel(name string) (Channel, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if ch, ok := sc.channels[name]; ok {
		return ch, nil
	}
	ch := &serverChannel{
		name:  name,
		sc:    sc,
		topic: topicFor(sc.l.prefix, name),
		in:    make(chan []byte, 32),
	}
	sc.channels[name] = ch
	return ch, nil
}

func (sc *serverConn) RemoteID() string { return sc.remoteID }

func (sc *serverConn) Close() error {
	sc.l.mu.Lock()
	delete(sc.l.conns, sc.remoteID)
	sc.l.mu.Unlock()
	return nil
}

type serverChannel struct {
	name  string
	sc    *serverConn
	topic string
	in    chan []byte
}

func (ch *serverChannel) Name() string { return ch.name }

func (ch *serverChannel) Send(ctx context.Context, frame []byte) error {
	return ch.sc.l.broker.Publish(ctx, ch.topic, frame)
}

func (ch *serverChannel) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-ch.in:
		return frame, nil
	case <-ch.sc.closed:
		return nil, fmt.Errorf("mux: peer %q disconnected", ch.sc.remoteID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ch *serverChannel) Close() error {
	ch.sc.mu.Lock()
	delete(ch.sc.channels, ch.name)
	ch.sc.mu.Unlock()
	return nil
}
