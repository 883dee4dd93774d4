package mux

import (
	"context"
	"io"
	"net"
	"testing"
	"time"
)

func TestOpenTCPProxyShuttlesBytes(t *testing.T) {
	echo, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen echo server: %v", err)
	}
	defer echo.Close()
	go func() {
		for {
			c, err := echo.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.Copy(c, c)
			}(c)
		}
	}()

	caller, peer := NewPipe("controller", "device-1")
	defer caller.Close()
	defer peer.Close()

	echoAddr := echo.Addr().(*net.TCPAddr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ServeTCPProxyRequests(ctx, peer, func(host string, port int) (net.Conn, error) {
		return net.Dial("tcp", echoAddr.String())
	})

	ln, err := OpenTCPProxy(ctx, caller, "drone", echoAddr.Port)
	if err != nil {
		t.Fatalf("OpenTCPProxy: %v", err)
	}
	defer ln.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial proxy: %v", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q, want %q", buf, "ping")
	}
}
