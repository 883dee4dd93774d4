// Package discovery provides the quiescence-timer bookkeeping shared by all
// three discovery variants (net, mux, avahi): age out a device that
// hasn't been re-reported by the current run for 5 seconds (spec §3
// "Discovery", §8 "Discovery quiescence"). The three variants differ only
// in how they learn that a device is present; this package is the common
// "last seen" ledger they all drive.
package discovery

import (
	"sync"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/controller"
	"github.com/arsdkgo/arsdkctrl/pkg/loop"
)

// QuiescenceTimeout is the fixed 5-second window spec §3/§8 mandates.
const QuiescenceTimeout = 5 * time.Second

// Tracker ages out devices a Discovery stops reporting. Callers call Seen
// each time a device is reported; a one-second loop.Ticker started by
// NewTracker evicts the devices not seen for QuiescenceTimeout.
type Tracker struct {
	l    *loop.Loop
	disc *controller.Discovery
	ctrl *controller.Controller

	mu       sync.Mutex
	lastSeen map[controller.Handle]time.Time
	byID     map[string]*controller.Device

	ticker *loop.Timer
}

// NewTracker creates a Tracker for disc, registered with ctrl, driven by l.
func NewTracker(l *loop.Loop, ctrl *controller.Controller, disc *controller.Discovery) *Tracker {
	t := &Tracker{
		l:        l,
		disc:     disc,
		ctrl:     ctrl,
		lastSeen: make(map[controller.Handle]time.Time),
		byID:     make(map[string]*controller.Device),
	}
	t.ticker = l.Ticker(time.Second, t.sweepDue)
	return t
}

// Seen records (or creates) the device identified by info.ID and refreshes
// its last-seen timestamp to now.
func (t *Tracker) Seen(info controller.DeviceInfo) *controller.Device {
	t.mu.Lock()
	defer t.mu.Unlock()

	dev, ok := t.byID[info.ID]
	if !ok {
		dev = t.ctrl.CreateDevice(t.disc, t.disc.RunID(), info)
		t.byID[info.ID] = dev
	}
	t.lastSeen[dev.Handle] = time.Now()
	return dev
}

// sweepDue runs every second on the loop and evicts devices whose last-seen
// timestamp is older than QuiescenceTimeout.
func (t *Tracker) sweepDue() {
	t.mu.Lock()
	now := time.Now()
	var stale []controller.Handle
	for h, seen := range t.lastSeen {
		if now.Sub(seen) >= QuiescenceTimeout {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		delete(t.lastSeen, h)
		for id, dev := range t.byID {
			if dev.Handle == h {
				delete(t.byID, id)
			}
		}
	}
	t.mu.Unlock()

	for _, h := range stale {
		t.ctrl.DestroyDevice(h)
	}
}

// Stop halts the periodic sweep. Already-tracked devices are left as-is.
func (t *Tracker) Stop() {
	t.ticker.Stop()
}
