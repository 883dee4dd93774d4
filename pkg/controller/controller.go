// Package controller implements the top-level registry described in spec
// §4.1: the set of backends, discoveries and devices owned by one
// controller instance, plus the 16-bit handle allocator devices are named
// by. It is grounded on the teacher's chatgear.Listener registry/accept
// pattern (device bookkeeping keyed by an opaque id, added/removed
// callbacks fired exactly once) generalised from one MQTT-backed listener
// to an arbitrary number of registered backends and discoveries.
package controller

import (
	"math/rand"
	"sync"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/loop"
	"github.com/arsdkgo/arsdkctrl/pkg/transport"
)

// Handle uniquely identifies a Device within a Controller. Handle 0 is
// reserved and never allocated (spec §4.1 invariants).
type Handle uint16

// DeviceInfo is what a Discovery reports when a device appears.
type DeviceInfo struct {
	DeviceType arsdk.DeviceType
	Name       string
	Address    string
	Port       int
	ID         string
}

// State is a Device's connection lifecycle state (spec §3 "Device").
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateRemoving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRemoving:
		return "removing"
	default:
		return "unknown"
	}
}

// Device is an entity observed on a backend (spec §3 "Device").
type Device struct {
	Handle      Handle
	BackendType arsdk.BackendType
	ProtoVer    arsdk.ProtocolVersion
	API         arsdk.APICapability
	State       State
	DeviceType  arsdk.DeviceType
	Name        string
	Address     string
	Port        int
	ID          string
	LastJSON    map[string]any

	// Transport is set by the owning Backend once StartDeviceConn
	// completes successfully (spec §2 "Transport created"); it is nil
	// until then and reset to nil on disconnect.
	Transport transport.Transport

	backend   Backend
	discovery *Discovery
	runID     uint64
	deleted   bool
}

// Deleted reports whether the controller has requested teardown of this
// device (spec §3 Device "deleted latch").
func (d *Device) Deleted() bool { return d.deleted }

// TCPProxy asks this device's backend for a local TCP endpoint forwarding
// to requestedPort on the device (spec §4.7). Returns a not-found error if
// the device has no backend (e.g. it was produced by a discovery that has
// since been unregistered).
func (d *Device) TCPProxy(requestedPort int) (addr string, port int, err error) {
	if d.backend == nil {
		return "", 0, arsdk.New(arsdk.KindNotFound, "device has no backend")
	}
	return d.backend.TCPProxy(d, requestedPort)
}

// Backend is the capability set a transport family exposes to the
// controller (spec §3 "Backend"): start/stop a device connection, an
// optional socket hook, and the declared protocol-version range and
// feature flags. pkg/backend/net and pkg/backend/mux implement this.
type Backend interface {
	Name() string
	Type() arsdk.BackendType
	ProtocolRange() (min, max arsdk.ProtocolVersion)
	QoSModeSupported() bool
	StreamSupported() bool
	StartDeviceConn(dev *Device) error
	StopDeviceConn(dev *Device)

	// TCPProxy exposes a local TCP endpoint that forwards to requestedPort
	// on dev, through whatever channel the backend uses to reach the
	// device (spec §4.7 "Device tcp-proxy").
	TCPProxy(dev *Device, requestedPort int) (addr string, port int, err error)
}

// Discovery is a named source of device add/remove events bound to a
// backend (spec §3 "Discovery"). pkg/discovery/{net,mux,avahi} implement
// this; Controller only needs to track run ids for aging.
type Discovery struct {
	Name       string
	Backend    Backend
	TypeFilter map[arsdk.DeviceType]bool
	runID      uint64
}

// RunID returns the discovery's current run id (spec §3: incremented on
// each restart, used to age out stale devices).
func (d *Discovery) RunID() uint64 { return d.runID }

// Restart increments the run id (spec §3 "Run id").
func (d *Discovery) Restart() { d.runID++ }

// Controller is the process-wide registry (spec §3 "Controller").
type Controller struct {
	loop *loop.Loop

	mu          sync.Mutex
	devices     []*Device
	backends    map[Backend]bool
	discoveries map[*Discovery]bool
	handles     map[Handle]bool
	rng         *rand.Rand

	onAdded   func(*Device)
	onRemoved func(*Device)
}

// New creates a Controller driven by l.
func New(l *loop.Loop) *Controller {
	return &Controller{
		loop:        l,
		backends:    make(map[Backend]bool),
		discoveries: make(map[*Discovery]bool),
		handles:     make(map[Handle]bool),
		rng:         rand.New(rand.NewSource(1)),
	}
}

// SetDeviceCallbacks registers the added/removed callbacks. Both are
// required (spec §4.1 "set_device_cbs") and must not be changed while a
// discovery is actively adding devices.
func (c *Controller) SetDeviceCallbacks(added, removed func(*Device)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAdded = added
	c.onRemoved = removed
}

// RegisterBackend adds backend to the registry. Registering the same
// backend twice returns an already-registered error.
func (c *Controller) RegisterBackend(b Backend) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backends[b] {
		return arsdk.New(arsdk.KindNotPermitted, "backend already registered")
	}
	c.backends[b] = true
	return nil
}

// UnregisterBackend removes backend and destroys every device it produced.
func (c *Controller) UnregisterBackend(b Backend) error {
	c.mu.Lock()
	if !c.backends[b] {
		c.mu.Unlock()
		return arsdk.New(arsdk.KindNotFound, "backend not registered")
	}
	delete(c.backends, b)
	var toDestroy []*Device
	for _, d := range c.devices {
		if d.backend == b {
			toDestroy = append(toDestroy, d)
		}
	}
	c.mu.Unlock()

	for _, d := range toDestroy {
		c.DestroyDevice(d.Handle)
	}
	return nil
}

// RegisterDiscovery adds disc to the registry.
func (c *Controller) RegisterDiscovery(disc *Discovery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.discoveries[disc] {
		return arsdk.New(arsdk.KindNotPermitted, "discovery already registered")
	}
	c.discoveries[disc] = true
	return nil
}

// UnregisterDiscovery removes disc. Devices it produced survive, with
// their discovery link cleared (spec §4.1).
func (c *Controller) UnregisterDiscovery(disc *Discovery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.discoveries[disc] {
		return arsdk.New(arsdk.KindNotFound, "discovery not registered")
	}
	delete(c.discoveries, disc)
	for _, d := range c.devices {
		if d.discovery == disc {
			d.discovery = nil
		}
	}
	return nil
}

// CreateDevice allocates a fresh handle and registers a new Device, firing
// the added callback (spec §4.1 "create_device").
func (c *Controller) CreateDevice(disc *Discovery, runID uint64, info DeviceInfo) *Device {
	c.mu.Lock()
	var backend Backend
	if disc != nil {
		backend = disc.Backend
	}
	d := &Device{
		Handle:      c.allocHandleLocked(),
		BackendType: backendType(backend),
		DeviceType:  info.DeviceType,
		Name:        info.Name,
		Address:     info.Address,
		Port:        info.Port,
		ID:          info.ID,
		State:       StateIdle,
		backend:     backend,
		discovery:   disc,
		runID:       runID,
	}
	c.devices = append([]*Device{d}, c.devices...)
	cb := c.onAdded
	c.mu.Unlock()

	if cb != nil {
		cb(d)
	}
	return d
}

func backendType(b Backend) arsdk.BackendType {
	if b == nil {
		return arsdk.BackendUnknown
	}
	return b.Type()
}

// DestroyDevice marks the device deleted, disconnects it if connected, and
// fires the removed callback exactly once (spec §4.1 "destroy_device").
func (c *Controller) DestroyDevice(h Handle) error {
	c.mu.Lock()
	var target *Device
	idx := -1
	for i, d := range c.devices {
		if d.Handle == h {
			target, idx = d, i
			break
		}
	}
	if target == nil {
		c.mu.Unlock()
		return arsdk.New(arsdk.KindNotFound, "device handle not found")
	}
	target.deleted = true
	target.State = StateRemoving
	backend := target.backend
	c.devices = append(c.devices[:idx], c.devices[idx+1:]...)
	delete(c.handles, h)
	cb := c.onRemoved
	c.mu.Unlock()

	if backend != nil {
		backend.StopDeviceConn(target)
	}
	if cb != nil {
		cb(target)
	}
	return nil
}

// GetDevice performs a linear lookup by handle (spec §4.1 "get_device").
func (c *Controller) GetDevice(h Handle) *Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.devices {
		if d.Handle == h {
			return d
		}
	}
	return nil
}

// Devices returns a snapshot of the currently registered devices.
func (c *Controller) Devices() []*Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// Loop returns the controller's event loop.
func (c *Controller) Loop() *loop.Loop { return c.loop }

func (c *Controller) allocHandleLocked() Handle {
	for {
		h := Handle(c.rng.Uint32()>>16) + 1 // never 0
		if h == 0 {
			continue
		}
		if !c.handles[h] {
			c.handles[h] = true
			return h
		}
	}
}
