// Package arsdk holds the glossary-level types shared by every controller
// component: device-type codes, the buffer-class/protocol-version
// enumerations, and the error taxonomy (spec §7).
package arsdk

import "fmt"

// DeviceType identifies a product family. The concrete on-wire encoding of
// every command for a given device type is assumed generated from an IDL
// and is out of scope here; DeviceType only gates handshake compatibility
// and port-offset arithmetic.
type DeviceType uint16

// Well-known device-type codes. Real deployments carry many more; these are
// the ones referenced by name elsewhere in this module (tcp-proxy host
// resolution, updater compatibility checks).
const (
	DeviceTypeUnknown DeviceType = 0
	DeviceTypeDrone   DeviceType = 1
	DeviceTypeSkyCtrl DeviceType = 2
)

// String returns a human-readable name for known device types, or a hex
// fallback for unknown ones.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeDrone:
		return "drone"
	case DeviceTypeSkyCtrl:
		return "skycontroller"
	default:
		return fmt.Sprintf("device-0x%04x", uint16(t))
	}
}

// ProtocolVersion is the integer negotiated during handshake; it gates the
// framing variant used by the transport. Valid range is 1..3.
type ProtocolVersion int

// MinProtocolVersion and MaxProtocolVersion bound the versions this
// controller implementation understands.
const (
	MinProtocolVersion ProtocolVersion = 1
	MaxProtocolVersion ProtocolVersion = 3
)

// InRange reports whether v falls within [lo, hi] inclusive.
func (v ProtocolVersion) InRange(lo, hi ProtocolVersion) bool {
	return v >= lo && v <= hi
}

// BufferType selects which transmit queue a command belongs to, and by
// extension which ack-queue-id offset applies on the receive side.
type BufferType int

const (
	BufferNoAck BufferType = iota
	BufferWithAck
	BufferHighPrioWithAck
	BufferStreamAck
)

// String implements fmt.Stringer.
func (b BufferType) String() string {
	switch b {
	case BufferNoAck:
		return "no-ack"
	case BufferWithAck:
		return "with-ack"
	case BufferHighPrioWithAck:
		return "high-prio-with-ack"
	case BufferStreamAck:
		return "stream-ack"
	default:
		return "unknown"
	}
}

// APICapability describes what a connected device is willing to do.
type APICapability int

const (
	APIUnknown APICapability = iota
	APIFull
	APIUpdateOnly
)

// BackendType distinguishes the two transport families this spec covers.
type BackendType int

const (
	BackendUnknown BackendType = iota
	BackendNet
	BackendMux
)

// String implements fmt.Stringer.
func (b BackendType) String() string {
	switch b {
	case BackendNet:
		return "net"
	case BackendMux:
		return "mux"
	default:
		return "unknown"
	}
}
