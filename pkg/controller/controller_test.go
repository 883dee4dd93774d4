package controller

import (
	"testing"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/loop"
)

type fakeBackend struct {
	name    string
	stopped []*Device
}

func (b *fakeBackend) Name() string { return b.name }
func (b *fakeBackend) Type() arsdk.BackendType { return arsdk.BackendNet }
func (b *fakeBackend) ProtocolRange() (arsdk.ProtocolVersion, arsdk.ProtocolVersion) {
	return arsdk.MinProtocolVersion, arsdk.MaxProtocolVersion
}
func (b *fakeBackend) QoSModeSupported() bool { return false }
func (b *fakeBackend) StreamSupported() bool  { return false }
func (b *fakeBackend) StartDeviceConn(dev *Device) error { return nil }
func (b *fakeBackend) StopDeviceConn(dev *Device)        { b.stopped = append(b.stopped, dev) }
func (b *fakeBackend) TCPProxy(dev *Device, requestedPort int) (string, int, error) {
	return dev.Address, requestedPort, nil
}

func newTestController(t *testing.T) *Controller {
	l := loop.New()
	t.Cleanup(l.Stop)
	return New(l)
}

func TestCreateDeviceFiresAddedOnce(t *testing.T) {
	c := newTestController(t)
	var added []*Device
	c.SetDeviceCallbacks(func(d *Device) { added = append(added, d) }, nil)

	d := c.CreateDevice(nil, 1, DeviceInfo{Name: "drone-1"})
	if len(added) != 1 || added[0] != d {
		t.Fatalf("added callback fired %d times, want exactly 1", len(added))
	}
	if d.Handle == 0 {
		t.Fatal("handle 0 is reserved and must never be allocated")
	}
}

func TestGetDeviceLookup(t *testing.T) {
	c := newTestController(t)
	d := c.CreateDevice(nil, 1, DeviceInfo{Name: "drone-1"})

	if got := c.GetDevice(d.Handle); got != d {
		t.Fatalf("GetDevice(%d) = %v, want %v", d.Handle, got, d)
	}
	if got := c.GetDevice(Handle(0)); got != nil {
		t.Fatalf("GetDevice(0) = %v, want nil", got)
	}
}

func TestDestroyDeviceFiresRemovedAndDeletesLatch(t *testing.T) {
	c := newTestController(t)
	var removed []*Device
	c.SetDeviceCallbacks(nil, func(d *Device) { removed = append(removed, d) })

	d := c.CreateDevice(nil, 1, DeviceInfo{Name: "drone-1"})
	if err := c.DestroyDevice(d.Handle); err != nil {
		t.Fatalf("DestroyDevice: %v", err)
	}

	if !d.Deleted() {
		t.Fatal("device should be marked deleted")
	}
	if len(removed) != 1 || removed[0] != d {
		t.Fatalf("removed callback fired %d times, want exactly 1", len(removed))
	}
	if c.GetDevice(d.Handle) != nil {
		t.Fatal("destroyed device should no longer be reachable via GetDevice")
	}
}

func TestDestroyDeviceUnknownHandle(t *testing.T) {
	c := newTestController(t)
	if err := c.DestroyDevice(Handle(12345)); err == nil {
		t.Fatal("expected not-found error for unknown handle")
	} else if arsdk.KindOf(err) != arsdk.KindNotFound {
		t.Fatalf("KindOf(err) = %v, want not-found", arsdk.KindOf(err))
	}
}

func TestRegisterBackendTwiceFails(t *testing.T) {
	c := newTestController(t)
	b := &fakeBackend{name: "net"}
	if err := c.RegisterBackend(b); err != nil {
		t.Fatalf("first RegisterBackend: %v", err)
	}
	if err := c.RegisterBackend(b); err == nil {
		t.Fatal("expected already-registered error on duplicate RegisterBackend")
	}
}

func TestUnregisterBackendDestroysItsDevices(t *testing.T) {
	c := newTestController(t)
	b := &fakeBackend{name: "net"}
	if err := c.RegisterBackend(b); err != nil {
		t.Fatalf("RegisterBackend: %v", err)
	}

	disc := &Discovery{Name: "net-discovery", Backend: b}
	if err := c.RegisterDiscovery(disc); err != nil {
		t.Fatalf("RegisterDiscovery: %v", err)
	}

	d := c.CreateDevice(disc, disc.RunID(), DeviceInfo{Name: "drone-1"})

	if err := c.UnregisterBackend(b); err != nil {
		t.Fatalf("UnregisterBackend: %v", err)
	}
	if c.GetDevice(d.Handle) != nil {
		t.Fatal("device produced by an unregistered backend should be destroyed")
	}
	if len(b.stopped) != 1 || b.stopped[0] != d {
		t.Fatalf("StopDeviceConn called %d times, want exactly 1", len(b.stopped))
	}
}

func TestUnregisterDiscoveryClearsLinkButKeepsDevice(t *testing.T) {
	c := newTestController(t)
	disc := &Discovery{Name: "net-discovery"}
	if err := c.RegisterDiscovery(disc); err != nil {
		t.Fatalf("RegisterDiscovery: %v", err)
	}
	d := c.CreateDevice(disc, disc.RunID(), DeviceInfo{Name: "drone-1"})

	if err := c.UnregisterDiscovery(disc); err != nil {
		t.Fatalf("UnregisterDiscovery: %v", err)
	}
	if c.GetDevice(d.Handle) == nil {
		t.Fatal("device should survive its discovery being unregistered")
	}
}

func TestDiscoveryRestartIncrementsRunID(t *testing.T) {
	disc := &Discovery{Name: "net-discovery"}
	if disc.RunID() != 0 {
		t.Fatalf("initial RunID = %d, want 0", disc.RunID())
	}
	disc.Restart()
	if disc.RunID() != 1 {
		t.Fatalf("RunID after Restart = %d, want 1", disc.RunID())
	}
}
