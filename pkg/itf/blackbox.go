package itf

import "sync"

// PilotingInfo is the remote-controller stick/button state snapshot pushed
// to every blackbox listener alongside command traffic (spec §4.6
// "blackbox"; mirrors arsdk_blackbox_rc_piloting_info's fields).
type PilotingInfo struct {
	Pitch  int8
	Roll   int8
	Yaw    int8
	Gaz    int8
	Source int8
}

// BlackboxListenerCbs are the callbacks a registered listener receives.
// Unlike the FTP-backed request interfaces, blackbox has no files to
// transfer: it's a live fan-out of the RC telemetry events passed to
// NotifyRCButtonAction and NotifyPilotingInfo, grounded on
// arsdk_blackbox_itf.c's listener
// registry rather than its own FTP walk.
type BlackboxListenerCbs struct {
	RCButtonAction func(action int)
	RCPilotingInfo func(info PilotingInfo)
	Unregistered   func()
}

// BlackboxListener is a registered subscriber; call Unregister to stop
// receiving events.
type BlackboxListener struct {
	cbs BlackboxListenerCbs
	itf *BlackboxItf
}

// Unregister removes this listener from its interface. Safe to call more
// than once.
func (l *BlackboxListener) Unregister() {
	l.itf.remove(l)
	if l.cbs.Unregistered != nil {
		l.cbs.Unregistered()
	}
}

// BlackboxItf fans out RC telemetry to every registered listener.
type BlackboxItf struct {
	mu        sync.Mutex
	listeners map[*BlackboxListener]bool
}

// NewBlackboxItf creates an empty blackbox interface.
func NewBlackboxItf() *BlackboxItf {
	return &BlackboxItf{listeners: make(map[*BlackboxListener]bool)}
}

// CreateListener registers cbs and returns the listener handle.
func (b *BlackboxItf) CreateListener(cbs BlackboxListenerCbs) *BlackboxListener {
	l := &BlackboxListener{cbs: cbs, itf: b}
	b.mu.Lock()
	b.listeners[l] = true
	b.mu.Unlock()
	return l
}

func (b *BlackboxItf) remove(l *BlackboxListener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
}

// NotifyRCButtonAction fans a button-action event out to every listener.
// No other package in this module calls it; the command interface does not
// decode RC button events from the incoming command stream.
func (b *BlackboxItf) NotifyRCButtonAction(action int) {
	for _, l := range b.snapshot() {
		if l.cbs.RCButtonAction != nil {
			l.cbs.RCButtonAction(action)
		}
	}
}

// NotifyPilotingInfo fans a piloting-info snapshot out to every listener.
func (b *BlackboxItf) NotifyPilotingInfo(info PilotingInfo) {
	for _, l := range b.snapshot() {
		if l.cbs.RCPilotingInfo != nil {
			l.cbs.RCPilotingInfo(info)
		}
	}
}

func (b *BlackboxItf) snapshot() []*BlackboxListener {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*BlackboxListener, 0, len(b.listeners))
	for l := range b.listeners {
		out = append(out, l)
	}
	return out
}
