package net

import (
	"net"
	"testing"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
)

func TestHandshakeRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serveErr := make(chan error, 1)
	go func() {
		_, _, err := ServeHandshake(ln, func(req HandshakeRequest) (HandshakeResponse, error) {
			if req.ControllerName != "arsdkctl" {
				t.Errorf("ControllerName = %q, want arsdkctl", req.ControllerName)
			}
			return HandshakeResponse{Status: 0, C2DPort: 9000, ProtoV: int(arsdk.MaxProtocolVersion), QoSMode: 0}, nil
		})
		serveErr <- err
	}()

	addr := ln.Addr().(*net.TCPAddr)
	res, err := Handshake("127.0.0.1", addr.Port, HandshakeConfig{
		ControllerName: "arsdkctl",
		ControllerType: "controller",
		D2CPort:        8000,
		ProtoVMin:      arsdk.MinProtocolVersion,
		ProtoVMax:      arsdk.MaxProtocolVersion,
	})
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if res.PeerPort != 9000 {
		t.Fatalf("PeerPort = %d, want 9000", res.PeerPort)
	}
	if res.ProtoVer != arsdk.MaxProtocolVersion {
		t.Fatalf("ProtoVer = %d, want %d", res.ProtoVer, arsdk.MaxProtocolVersion)
	}

	if err := <-serveErr; err != nil {
		t.Fatalf("ServeHandshake: %v", err)
	}
}

func TestHandshakeRejectedStatus(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go ServeHandshake(ln, func(req HandshakeRequest) (HandshakeResponse, error) {
		return HandshakeResponse{Status: 1}, nil
	})

	addr := ln.Addr().(*net.TCPAddr)
	_, err = Handshake("127.0.0.1", addr.Port, HandshakeConfig{
		ControllerName: "arsdkctl",
		ControllerType: "controller",
		ProtoVMin:      arsdk.MinProtocolVersion,
		ProtoVMax:      arsdk.MaxProtocolVersion,
	})
	if err == nil {
		t.Fatal("expected an error for a rejected handshake")
	}
}
