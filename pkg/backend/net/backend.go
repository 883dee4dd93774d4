package net

import (
	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/controller"
)

// Backend is the net-backend implementation of controller.Backend: it owns
// the JSON handshake and stands up the UDP transport pair once the
// handshake accepts (spec §4.3).
type Backend struct {
	ControllerName string
	ControllerType string
	ProtoVMin      arsdk.ProtocolVersion
	ProtoVMax      arsdk.ProtocolVersion
	WantQoS        bool

	// PrimaryDeviceType is this backend's usual device type (e.g. the
	// drone it was configured to talk to); TCPProxy compares against it
	// to decide whether the +100 port offset applies (spec §4.7).
	PrimaryDeviceType arsdk.DeviceType
	// IsController marks this backend as itself a controller, which
	// exempts it from the +100 device-type-mismatch offset (spec §4.7).
	IsController bool

	conns map[*controller.Device]*udpTransport
}

// NewBackend creates a net Backend advertising [protoMin, protoMax].
func NewBackend(controllerName, controllerType string, protoMin, protoMax arsdk.ProtocolVersion) *Backend {
	return &Backend{
		ControllerName: controllerName,
		ControllerType: controllerType,
		ProtoVMin:      protoMin,
		ProtoVMax:      protoMax,
		conns:          make(map[*controller.Device]*udpTransport),
	}
}

// proxyPortOffset is added to the requested port when the target device's
// type differs from this backend's primary type and the backend isn't
// itself a controller (spec §4.7, §6 "non-primary device types add an
// offset of 100... over the net backend").
const proxyPortOffset = 100

// TCPProxy implements controller.Backend: for the net backend the proxy is
// just the device's own address at an offset port, no actual tunneling
// needed since the net backend already talks directly to the device's IP
// (spec §4.7 "net backend: expose addr=device.address, port=requested_
// port + offset").
func (b *Backend) TCPProxy(dev *controller.Device, requestedPort int) (string, int, error) {
	port := requestedPort
	if !b.IsController && dev.DeviceType != b.PrimaryDeviceType {
		port += proxyPortOffset
	}
	return dev.Address, port, nil
}

func (b *Backend) Name() string                  { return "net" }
func (b *Backend) Type() arsdk.BackendType        { return arsdk.BackendNet }
func (b *Backend) QoSModeSupported() bool         { return b.WantQoS }
func (b *Backend) StreamSupported() bool          { return false }
func (b *Backend) ProtocolRange() (arsdk.ProtocolVersion, arsdk.ProtocolVersion) {
	return b.ProtoVMin, b.ProtoVMax
}

// StartDeviceConn runs the UDP-pair-then-TCP-handshake sequence (spec
// §4.3 steps 1-3) and, on success, installs the resulting transport on the
// device.
func (b *Backend) StartDeviceConn(dev *controller.Device) error {
	dev.State = controller.StateConnecting

	tx, err := newUDPTransport(0, dev.Address, dev.Port)
	if err != nil {
		dev.State = controller.StateIdle
		return arsdk.Wrap(arsdk.KindIOFailed, "udp bind", err)
	}

	res, err := Handshake(dev.Address, dev.Port, HandshakeConfig{
		ControllerName: b.ControllerName,
		ControllerType: b.ControllerType,
		D2CPort:        tx.LocalPort(),
		DeviceID:       dev.ID,
		WantQoS:        b.WantQoS,
		ProtoVMin:      b.ProtoVMin,
		ProtoVMax:      b.ProtoVMax,
	})
	if err != nil {
		tx.Close()
		dev.State = controller.StateIdle
		return err
	}

	tx.peer.Port = res.PeerPort
	dev.ProtoVer = res.ProtoVer
	dev.Transport = tx
	dev.State = controller.StateConnected
	b.conns[dev] = tx
	return nil
}

// StopDeviceConn closes the device's UDP transport and resets its state
// (spec §3 Device lifecycle: "back to idle on disconnect").
func (b *Backend) StopDeviceConn(dev *controller.Device) {
	if tx, ok := b.conns[dev]; ok {
		tx.Close()
		delete(b.conns, dev)
	}
	dev.Transport = nil
	if !dev.Deleted() {
		dev.State = controller.StateIdle
	}
}
