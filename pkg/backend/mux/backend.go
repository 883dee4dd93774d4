// Package mux implements the mux backend: device connections negotiated
// over a pre-established pkg/mux.Conn instead of a fresh TCP+UDP pair
// (spec §4.4). The connection-request/response exchange mirrors the net
// backend's JSON handshake fields, carried as JSON frames on a
// "backend-control" channel instead of a TCP socket.
package mux

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/controller"
	"github.com/arsdkgo/arsdkctrl/pkg/mux"
	"github.com/arsdkgo/arsdkctrl/pkg/transport"
)

const backendControlChannel = "backend-control"

// ConnRequest is the JSON object sent on the backend-control channel to
// open a device connection (spec §4.4). Exported so a device stand-in
// (cmd/devicesim) can decode it without duplicating the wire shape.
type ConnRequest struct {
	ControllerName string `json:"controller_name"`
	ControllerType string `json:"controller_type"`
	DeviceID       string `json:"device_id,omitempty"`
	Opaque         map[string]any `json:"opaque,omitempty"`
}

// ConnResponse is the JSON object the device answers a ConnRequest with.
type ConnResponse struct {
	Status int            `json:"status"`
	Opaque map[string]any `json:"opaque,omitempty"`
}

// Backend is the mux-backend implementation of controller.Backend.
type Backend struct {
	ControllerName string
	ControllerType string
	Conn           mux.Conn
	HandshakeTimeout time.Duration

	channels map[*controller.Device]mux.Channel
}

// NewBackend wraps an already-dialled mux.Conn (spec §4.4: "the mux is a
// pre-established channel-multiplexed byte stream").
func NewBackend(controllerName, controllerType string, conn mux.Conn) *Backend {
	return &Backend{
		ControllerName: controllerName,
		ControllerType: controllerType,
		Conn:           conn,
		HandshakeTimeout: 5 * time.Second,
		channels:       make(map[*controller.Device]mux.Channel),
	}
}

func (b *Backend) Name() string           { return "mux" }
func (b *Backend) Type() arsdk.BackendType { return arsdk.BackendMux }
func (b *Backend) QoSModeSupported() bool  { return false }
func (b *Backend) StreamSupported() bool   { return false }
func (b *Backend) ProtocolRange() (arsdk.ProtocolVersion, arsdk.ProtocolVersion) {
	return arsdk.MinProtocolVersion, arsdk.MaxProtocolVersion
}

// StartDeviceConn opens the backend-control channel, sends a
// connection-request, and waits for a single status response (spec §4.4).
func (b *Backend) StartDeviceConn(dev *controller.Device) error {
	dev.State = controller.StateConnecting

	ctrl, err := b.Conn.OpenChannel(backendControlChannel)
	if err != nil {
		dev.State = controller.StateIdle
		return arsdk.Wrap(arsdk.KindIOFailed, "open backend-control channel", err)
	}

	req := ConnRequest{ControllerName: b.ControllerName, ControllerType: b.ControllerType, DeviceID: dev.ID}
	payload, err := json.Marshal(req)
	if err != nil {
		dev.State = controller.StateIdle
		return arsdk.Wrap(arsdk.KindInvalidArgument, "encode connection-request", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.HandshakeTimeout)
	defer cancel()
	if err := ctrl.Send(ctx, payload); err != nil {
		dev.State = controller.StateIdle
		return arsdk.Wrap(arsdk.KindIOFailed, "send connection-request", err)
	}

	frame, err := ctrl.Recv(ctx)
	if err != nil {
		dev.State = controller.StateIdle
		return arsdk.Wrap(arsdk.KindTimeout, "connection-response", err)
	}

	var resp ConnResponse
	if err := json.Unmarshal(frame, &resp); err != nil {
		dev.State = controller.StateIdle
		return arsdk.Wrap(arsdk.KindIOFailed, "decode connection-response", err)
	}
	if resp.Status != 0 {
		dev.State = controller.StateIdle
		return arsdk.Newf(arsdk.KindRejected, "mux connection rejected, status %d", resp.Status).WithCode(resp.Status)
	}

	data, err := b.Conn.OpenChannel(deviceDataChannelName(dev))
	if err != nil {
		dev.State = controller.StateIdle
		return arsdk.Wrap(arsdk.KindIOFailed, "open device data channel", err)
	}
	dev.ProtoVer = arsdk.MaxProtocolVersion
	dev.Transport = newChannelTransport(data)
	dev.State = controller.StateConnected
	b.channels[dev] = data
	return nil
}

// StopDeviceConn closes the device's data channel (spec §4.4 "Reconnection
// on channel reset" covers the backend-control channel itself; per-device
// data channels are this backend's own bookkeeping).
func (b *Backend) StopDeviceConn(dev *controller.Device) {
	if ch, ok := b.channels[dev]; ok {
		ch.Close()
		delete(b.channels, dev)
	}
	dev.Transport = nil
	if !dev.Deleted() {
		dev.State = controller.StateIdle
	}
}

func deviceDataChannelName(dev *controller.Device) string {
	return DeviceDataChannelName(dev.ID)
}

// DeviceDataChannelName returns the per-device data channel name this
// backend opens once a connection-request is accepted, keyed by deviceID.
// Exported so a device stand-in (cmd/devicesim) can open the matching
// channel on its side of the Conn.
func DeviceDataChannelName(deviceID string) string {
	return "device-data-" + deviceID
}

// ServeBackendControlFunc answers one decoded ConnRequest with the
// response to send back.
type ServeBackendControlFunc func(req ConnRequest) ConnResponse

// ServeBackendControl is the device-side counterpart to StartDeviceConn: it
// watches conn's backend-control channel for one connection-request,
// answers it, and returns the request so the caller can open the matching
// per-device data channel (spec §4.4, device side). cmd/devicesim uses
// this to stand in for the device end of a mux connection.
func ServeBackendControl(ctx context.Context, conn mux.Conn, answer ServeBackendControlFunc) (ConnRequest, error) {
	ctrl, err := conn.OpenChannel(backendControlChannel)
	if err != nil {
		return ConnRequest{}, arsdk.Wrap(arsdk.KindIOFailed, "open backend-control channel", err)
	}

	frame, err := ctrl.Recv(ctx)
	if err != nil {
		return ConnRequest{}, arsdk.Wrap(arsdk.KindIOFailed, "recv connection-request", err)
	}
	var req ConnRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return ConnRequest{}, arsdk.Wrap(arsdk.KindIOFailed, "decode connection-request", err)
	}

	resp := answer(req)
	payload, err := json.Marshal(resp)
	if err != nil {
		return ConnRequest{}, arsdk.Wrap(arsdk.KindInvalidArgument, "encode connection-response", err)
	}
	if err := ctrl.Send(ctx, payload); err != nil {
		return ConnRequest{}, arsdk.Wrap(arsdk.KindIOFailed, "send connection-response", err)
	}
	return req, nil
}

// NewChannelTransport adapts ch to transport.Transport the same way this
// backend's own device connections are framed, so a device stand-in can
// speak the identical {queue-id, seq, payload} envelope back over its data
// channel.
func NewChannelTransport(ch mux.Channel) transport.Transport {
	return newChannelTransport(ch)
}

// proxyHostFor resolves the peer-side hostname the mux layer forwards to,
// keyed by device type (spec §4.7 "mux backend: ask the mux layer for an
// ip-proxy to (resolved-host, port), where host is skycontroller or drone
// depending on device-type").
func proxyHostFor(devType arsdk.DeviceType) string {
	if devType == arsdk.DeviceTypeSkyCtrl {
		return "skycontroller"
	}
	return "drone"
}

// TCPProxy implements controller.Backend by asking the mux layer to forward
// a TCP service on the peer side and exposing it as a local loopback
// listener (spec §4.7). The returned address/port is where callers should
// dial; OpenTCPProxy keeps the listener alive for the lifetime of the proxy.
func (b *Backend) TCPProxy(dev *controller.Device, requestedPort int) (string, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.HandshakeTimeout)
	defer cancel()

	ln, err := mux.OpenTCPProxy(ctx, b.Conn, proxyHostFor(dev.DeviceType), requestedPort)
	if err != nil {
		return "", 0, arsdk.Wrap(arsdk.KindIOFailed, "open tcp-proxy", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, nil
}

// channelTransport adapts a mux.Channel to transport.Transport by sending
// each {queue-id, seq, payload} frame as one message on the channel's
// already-frame-delimited Send/Recv (spec §4.4: "command frames in mux
// packets with per-frame length prefix" — the mux layer's own framing
// already delimits messages, so no extra length prefix is needed here;
// this adapter only (de)serialises the queue-id/seq envelope).
type channelTransport struct {
	ch mux.Channel
}

func newChannelTransport(ch mux.Channel) *channelTransport {
	return &channelTransport{ch: ch}
}

func (t *channelTransport) Send(ctx context.Context, f transport.Frame) error {
	buf := make([]byte, 2+len(f.Payload))
	buf[0] = f.QueueID
	buf[1] = f.Seq
	copy(buf[2:], f.Payload)
	return t.ch.Send(ctx, buf)
}

func (t *channelTransport) Recv(ctx context.Context) (transport.Frame, error) {
	buf, err := t.ch.Recv(ctx)
	if err != nil {
		return transport.Frame{}, err
	}
	if len(buf) < 2 {
		return transport.Frame{}, nil
	}
	return transport.Frame{QueueID: buf[0], Seq: buf[1], Payload: append([]byte(nil), buf[2:]...)}, nil
}

func (t *channelTransport) Close() error { return t.ch.Close() }
