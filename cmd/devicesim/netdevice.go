package main

import (
	"log"
	"net"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	netbackend "github.com/arsdkgo/arsdkctrl/pkg/backend/net"
)

// startNetHandshake listens on addr and answers every net backend
// handshake it receives (spec §4.3 steps 2-3, device side), standing up a
// fresh UDP echo transport per accepted connection. It keeps accepting
// until the returned listener is closed.
func (d *simDevice) startNetHandshake(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			var udpConn *net.UDPConn
			req, peerHost, err := netbackend.ServeHandshake(ln, func(req netbackend.HandshakeRequest) (netbackend.HandshakeResponse, error) {
				resp, conn, err := d.answerHandshake(req)
				udpConn = conn
				return resp, err
			})
			if err != nil {
				return
			}
			go d.runUDPEcho(udpConn, req, peerHost)
		}
	}()
	return ln, nil
}

func (d *simDevice) answerHandshake(req netbackend.HandshakeRequest) (netbackend.HandshakeResponse, *net.UDPConn, error) {
	proto := req.ProtoVMax
	if proto > int(arsdk.MaxProtocolVersion) {
		proto = int(arsdk.MaxProtocolVersion)
	}
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return netbackend.HandshakeResponse{}, nil, err
	}
	c2dPort := udpConn.LocalAddr().(*net.UDPAddr).Port
	log.Printf("handshake from %s/%s, offering c2d_port=%d proto_v=%d",
		req.ControllerName, req.ControllerType, c2dPort, proto)
	return netbackend.HandshakeResponse{
		Status:  0,
		C2DPort: c2dPort,
		ProtoV:  proto,
		QoSMode: req.QoSMode,
	}, udpConn, nil
}

// runUDPEcho shuttles {queue-id, seq, payload} frames back to the
// controller's D2CPort on peerHost, echoing whatever it receives so the
// command transport round-trips without needing a real flight controller
// behind it (spec §1: the IDL-generated command payload contents are an
// external collaborator, out of scope here).
func (d *simDevice) runUDPEcho(conn *net.UDPConn, req netbackend.HandshakeRequest, peerHost string) {
	defer conn.Close()

	peer := &net.UDPAddr{IP: net.ParseIP(peerHost), Port: req.D2CPort}
	buf := make([]byte, 65535)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if n < 2 {
			continue
		}
		conn.WriteToUDP(buf[:n], peer)
	}
}
