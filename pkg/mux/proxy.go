package mux

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
)

// OpenTCPProxy asks the peer (over the "proxy" control channel) to forward a
// local TCP service to the caller, then serves that forwarded stream on a
// freshly allocated local port. It's the mux-side implementation of the
// device tcp-proxy (spec §4.7): the real library asks the mux for an
// ip-proxy; here the request/response is just another pair of frames on a
// well-known channel, and the actual byte forwarding is a plain TCP shuttle.
//
// remoteHost/remotePort name the service as the peer sees it (e.g.
// "127.0.0.1", 21 for its own FTP server). The returned listener accepts
// connections from local clients and relays each one to that service
// through its own data channel, opened by a request on the Conn's "proxy"
// channel.
func OpenTCPProxy(ctx context.Context, conn Conn, remoteHost string, remotePort int) (net.Listener, error) {
	ctrl, err := conn.OpenChannel("proxy")
	if err != nil {
		return nil, fmt.Errorf("mux: open proxy channel: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("mux: proxy listen: %w", err)
	}

	go func() {
		defer ln.Close()
		for {
			local, err := ln.Accept()
			if err != nil {
				return
			}
			go proxySession(ctx, ctrl, conn, local, remoteHost, remotePort)
		}
	}()
	return ln, nil
}

// proxySession multiplexes one local TCP connection's bytes over a
// dedicated, uniquely named data channel negotiated through ctrl.
func proxySession(ctx context.Context, ctrl Channel, conn Conn, local net.Conn, remoteHost string, remotePort int) {
	defer local.Close()

	dataName := "proxy-data-" + uuid.NewString()
	req := fmt.Sprintf("open %s %s %d", dataName, remoteHost, remotePort)
	if err := ctrl.Send(ctx, []byte(req)); err != nil {
		return
	}

	data, err := conn.OpenChannel(dataName)
	if err != nil {
		return
	}
	defer data.Close()

	done := make(chan struct{}, 2)
	go func() {
		defer func() { done <- struct{}{} }()
		buf := make([]byte, 4096)
		for {
			n, err := local.Read(buf)
			if n > 0 {
				if sendErr := data.Send(ctx, append([]byte(nil), buf[:n]...)); sendErr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		for {
			frame, err := data.Recv(ctx)
			if err != nil {
				return
			}
			if _, err := local.Write(frame); err != nil {
				return
			}
		}
	}()
	<-done
}

// ServeTCPProxyRequests is the peer-side counterpart run by anything that
// accepted a Conn via Listen: it watches the "proxy" control channel for open
// requests and shuttles bytes between the named data channel and a real TCP
// dial to host:port. devicesim uses this to expose its own FTP/update ports
// through the mux link the way a real vehicle would.
func ServeTCPProxyRequests(ctx context.Context, conn Conn, dial func(host string, port int) (net.Conn, error)) error {
	ctrl, err := conn.OpenChannel("proxy")
	if err != nil {
		return fmt.Errorf("mux: open proxy channel: %w", err)
	}
	for {
		frame, err := ctrl.Recv(ctx)
		if err != nil {
			return err
		}
		var name, host string
		var port int
		if _, err := fmt.Sscanf(string(frame), "open %s %s %d", &name, &host, &port); err != nil {
			continue
		}
		go serveProxyData(ctx, conn, name, host, port, dial)
	}
}

func serveProxyData(ctx context.Context, conn Conn, name, host string, port int, dial func(string, int) (net.Conn, error)) {
	data, err := conn.OpenChannel(name)
	if err != nil {
		return
	}
	defer data.Close()

	remote, err := dial(host, port)
	if err != nil {
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		defer func() { done <- struct{}{} }()
		io.Copy(&channelWriter{ctx: ctx, ch: data}, remote)
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		for {
			frame, err := data.Recv(ctx)
			if err != nil {
				return
			}
			if _, err := remote.Write(frame); err != nil {
				return
			}
		}
	}()
	<-done
}

// channelWriter adapts a Channel to io.Writer so io.Copy can drive it.
type channelWriter struct {
	ctx context.Context
	ch  Channel
}

func (w *channelWriter) Write(p []byte) (int, error) {
	if err := w.ch.Send(w.ctx, append([]byte(nil), p...)); err != nil {
		return 0, err
	}
	return len(p), nil
}
