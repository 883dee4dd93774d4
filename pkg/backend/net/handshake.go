// Package net implements the net backend: a UDP datagram pair for command
// traffic plus a short-lived JSON-over-TCP handshake that negotiates the
// ports, QoS mode and protocol version before that pair comes up (spec
// §4.3). It's grounded on the teacher's chatgear handshake-by-JSON pattern
// (conn_mqtt.go's stamped frames and port.go's ClientPortTx/Rx split),
// generalised from an MQTT topic pair to a literal TCP-then-UDP handoff.
package net

import (
	"encoding/json"
	"fmt"
	stdnet "net"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
)

// HandshakeRequest is the JSON object the controller sends once the TCP
// socket connects (spec §4.3 table, outbound keys). Exported so a device
// stand-in (cmd/devicesim) can decode it without duplicating the wire
// shape.
type HandshakeRequest struct {
	ControllerName string `json:"controller_name"`
	ControllerType string `json:"controller_type"`
	D2CPort        int    `json:"d2c_port"`
	DeviceID       string `json:"device_id,omitempty"`
	QoSMode        int    `json:"qos_mode,omitempty"`
	ProtoVMin      int    `json:"proto_v_min"`
	ProtoVMax      int    `json:"proto_v_max"`
}

// HandshakeResponse is the JSON object the device replies with (spec §4.3
// table, inbound keys).
type HandshakeResponse struct {
	Status  int `json:"status"`
	C2DPort int `json:"c2d_port"`
	ProtoV  int `json:"proto_v"`
	QoSMode int `json:"qos_mode"`
}

// HandshakeConfig carries the values the controller offers in the
// handshake request.
type HandshakeConfig struct {
	ControllerName string
	ControllerType string
	D2CPort        int
	DeviceID       string
	WantQoS        bool
	ProtoVMin      arsdk.ProtocolVersion
	ProtoVMax      arsdk.ProtocolVersion
	DialTimeout    time.Duration
}

// HandshakeResult is what a successful handshake yields: the peer's UDP
// port to send to and the protocol version it selected.
type HandshakeResult struct {
	PeerPort int
	ProtoVer arsdk.ProtocolVersion
	QoSMode  int
}

// Handshake dials addr:port over TCP, exchanges the JSON handshake, and
// reports the negotiated parameters (spec §4.3 steps 2-3). The TCP socket
// is always closed before returning, successful or not.
func Handshake(addr string, port int, cfg HandshakeConfig) (HandshakeResult, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	target := fmt.Sprintf("%s:%d", addr, port)
	conn, err := stdnet.DialTimeout("tcp", target, cfg.DialTimeout)
	if err != nil {
		return HandshakeResult{}, arsdk.Wrap(arsdk.KindIOFailed, "handshake dial", err)
	}
	defer conn.Close()

	qos := 0
	if cfg.WantQoS {
		qos = 1
	}
	req := HandshakeRequest{
		ControllerName: cfg.ControllerName,
		ControllerType: cfg.ControllerType,
		D2CPort:        cfg.D2CPort,
		DeviceID:       cfg.DeviceID,
		QoSMode:        qos,
		ProtoVMin:      int(cfg.ProtoVMin),
		ProtoVMax:      int(cfg.ProtoVMax),
	}
	conn.SetDeadline(time.Now().Add(cfg.DialTimeout))
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return HandshakeResult{}, arsdk.Wrap(arsdk.KindIOFailed, "handshake send", err)
	}

	var resp HandshakeResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return HandshakeResult{}, arsdk.Wrap(arsdk.KindIOFailed, "handshake recv", err)
	}

	if resp.Status != 0 {
		return HandshakeResult{}, arsdk.Newf(arsdk.KindRejected, "handshake rejected, status %d", resp.Status).WithCode(resp.Status)
	}
	proto := arsdk.ProtocolVersion(resp.ProtoV)
	if !proto.InRange(cfg.ProtoVMin, cfg.ProtoVMax) {
		return HandshakeResult{}, arsdk.Newf(arsdk.KindRejected, "protocol version %d outside supported range [%d,%d]", proto, cfg.ProtoVMin, cfg.ProtoVMax)
	}

	return HandshakeResult{PeerPort: resp.C2DPort, ProtoVer: proto, QoSMode: resp.QoSMode}, nil
}

// ServeHandshakeFunc answers one decoded HandshakeRequest with the
// response to send back, or an error to reject the connection outright
// (the socket is closed without a reply).
type ServeHandshakeFunc func(req HandshakeRequest) (HandshakeResponse, error)

// ServeHandshake accepts a single handshake connection from ln, decodes
// the controller's request, and replies with whatever answer returns
// (spec §4.3 steps 2-3, device side). It returns the controller's request
// and the host part of its TCP peer address, since the device still needs
// that address to target its own UDP sends at the controller's D2CPort.
// It's the device-side counterpart to Handshake, used by cmd/devicesim to
// stand in for a device's own handshake listener.
func ServeHandshake(ln stdnet.Listener, answer ServeHandshakeFunc) (HandshakeRequest, string, error) {
	conn, err := ln.Accept()
	if err != nil {
		return HandshakeRequest{}, "", arsdk.Wrap(arsdk.KindIOFailed, "handshake accept", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	var req HandshakeRequest
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return HandshakeRequest{}, "", arsdk.Wrap(arsdk.KindIOFailed, "handshake decode", err)
	}

	resp, err := answer(req)
	if err != nil {
		return HandshakeRequest{}, "", err
	}
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		return HandshakeRequest{}, "", arsdk.Wrap(arsdk.KindIOFailed, "handshake reply", err)
	}

	host, _, err := stdnet.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}
	return req, host, nil
}
