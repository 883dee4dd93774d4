package ftp

import (
	"sync"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
)

// DefaultDialTimeout bounds how long Pool.Get waits for a fresh control
// connection to come up (spec §4.5 "connection pool").
const DefaultDialTimeout = 10 * time.Second

// Pool is the connection pool keyed by (remote-address, remote-port) spec
// §3 describes FtpConnection as living in: at most one control connection
// per device, reused across requests, opened lazily on first use.
type Pool struct {
	mu          sync.Mutex
	creds       Credentials
	dialTimeout time.Duration
	conns       map[poolKey]*Conn
}

type poolKey struct {
	addr string
	port int
}

// NewPool creates an empty pool that authenticates new connections with
// creds (ftp.DefaultCredentials for anonymous).
func NewPool(creds Credentials) *Pool {
	return &Pool{
		creds:       creds,
		dialTimeout: DefaultDialTimeout,
		conns:       make(map[poolKey]*Conn),
	}
}

// Get returns the pooled connection for (addr, port), dialing and
// authenticating one if none exists yet. The returned Conn must not be used
// concurrently by more than one request at a time; callers serialize access
// themselves (a device issues FTP requests one at a time in practice).
func (p *Pool) Get(addr string, port int) (*Conn, error) {
	key := poolKey{addr, port}

	p.mu.Lock()
	if c, ok := p.conns[key]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	c, err := dial(addr, port, p.creds, p.dialTimeout)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if existing, ok := p.conns[key]; ok {
		p.mu.Unlock()
		c.close()
		return existing, nil
	}
	p.conns[key] = c
	p.mu.Unlock()
	return c, nil
}

// Drop closes and evicts the pooled connection for (addr, port), if any.
// Called after a control-connection I/O error so the next Get reconnects.
func (p *Pool) Drop(addr string, port int) {
	key := poolKey{addr, port}
	p.mu.Lock()
	c, ok := p.conns[key]
	delete(p.conns, key)
	p.mu.Unlock()
	if ok {
		c.close()
	}
}

// Close closes every pooled connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	for key, c := range p.conns {
		if err := c.close(); err != nil && first == nil {
			first = arsdk.Wrap(arsdk.KindIOFailed, "ftp pool close", err)
		}
		delete(p.conns, key)
	}
	return first
}
