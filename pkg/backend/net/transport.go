package net

import (
	"context"
	stdnet "net"
	"strconv"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/transport"
)

// udpTransport carries command-interface frames over the two unidirectional
// UDP flows described in spec §6 "Command transport (net)". Frame encoding
// beyond {queue-id, seq, payload} is this package's own concern (the wire
// framing layer proper is an external collaborator per spec §1); here a
// frame is queue-id(1) seq(1) payload(rest).
type udpTransport struct {
	conn *stdnet.UDPConn
	peer *stdnet.UDPAddr
}

// newUDPTransport binds a UDP socket on localPort (0 for an ephemeral
// port) and targets peerAddr:peerPort for sends.
func newUDPTransport(localPort int, peerAddr string, peerPort int) (*udpTransport, error) {
	laddr := &stdnet.UDPAddr{Port: localPort}
	conn, err := stdnet.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	peer, err := stdnet.ResolveUDPAddr("udp", peerAddrPort(peerAddr, peerPort))
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &udpTransport{conn: conn, peer: peer}, nil
}

func peerAddrPort(addr string, port int) string {
	return stdnet.JoinHostPort(addr, strconv.Itoa(port))
}

// LocalPort returns the bound local UDP port, useful when localPort was 0.
func (t *udpTransport) LocalPort() int {
	return t.conn.LocalAddr().(*stdnet.UDPAddr).Port
}

func (t *udpTransport) Send(ctx context.Context, f transport.Frame) error {
	buf := make([]byte, 2+len(f.Payload))
	buf[0] = f.QueueID
	buf[1] = f.Seq
	copy(buf[2:], f.Payload)
	_, err := t.conn.WriteToUDP(buf, t.peer)
	return err
}

func (t *udpTransport) Recv(ctx context.Context) (transport.Frame, error) {
	buf := make([]byte, 65535)
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, _, err := t.conn.ReadFromUDP(buf)
		ch <- result{n, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return transport.Frame{}, r.err
		}
		if r.n < 2 {
			return transport.Frame{}, nil
		}
		return transport.Frame{QueueID: buf[0], Seq: buf[1], Payload: append([]byte(nil), buf[2:r.n]...)}, nil
	case <-ctx.Done():
		t.conn.SetReadDeadline(time.Now())
		return transport.Frame{}, ctx.Err()
	}
}

func (t *udpTransport) Close() error { return t.conn.Close() }
