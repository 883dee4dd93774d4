// Package loop provides the single-threaded cooperative scheduler that every
// other package in this module assumes is driving it (spec §5: "all
// callbacks, timer ticks, socket events and user API entrypoints must run on
// the same loop"). The concrete event loop is treated as an external
// collaborator in the original C library (libpomp); this package is a small
// idiomatic Go stand-in: one goroutine drains a work queue and fires
// scheduled timers, and every call into it from another goroutine is
// marshaled through Post.
package loop

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Loop is the single-threaded scheduler. All mutation of shared component
// state must happen from functions passed to Post or scheduled via
// AfterFunc/Ticker, never directly from an arbitrary goroutine.
type Loop struct {
	work chan func()

	mu      sync.Mutex
	timers  timerHeap
	nextSeq uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates and starts a Loop. Call Stop to shut it down.
func New() *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		work:   make(chan func(), 256),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Post schedules f to run on the loop goroutine as soon as possible. Safe to
// call from any goroutine, including from within the loop itself.
func (l *Loop) Post(f func()) {
	select {
	case l.work <- f:
	case <-l.ctx.Done():
	}
}

// Timer is a handle to a scheduled callback; Stop cancels it if it hasn't
// fired yet.
type Timer struct {
	id     uint64
	l      *Loop
	period time.Duration // 0 for one-shot
}

// Stop disarms the timer. Safe to call multiple times or after it has
// already fired.
func (t *Timer) Stop() {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	for i, e := range t.l.timers {
		if e.id == t.id {
			heap.Remove(&t.l.timers, i)
			return
		}
	}
}

// AfterFunc arms a one-shot timer that posts f to the loop after d elapses.
func (l *Loop) AfterFunc(d time.Duration, f func()) *Timer {
	return l.schedule(d, 0, f)
}

// Ticker arms a periodic timer that posts f to the loop every d, starting
// after the first d elapses.
func (l *Loop) Ticker(d time.Duration, f func()) *Timer {
	return l.schedule(d, d, f)
}

func (l *Loop) schedule(delay, period time.Duration, f func()) *Timer {
	l.mu.Lock()
	l.nextSeq++
	id := l.nextSeq
	e := &timerEntry{id: id, at: time.Now().Add(delay), period: period, fn: f}
	heap.Push(&l.timers, e)
	l.mu.Unlock()
	return &Timer{id: id, l: l, period: period}
}

// Stop halts the loop goroutine. Pending work is dropped.
func (l *Loop) Stop() {
	l.cancel()
	<-l.done
}

// Now returns the current wall-clock time as observed by the loop. Kept as
// a method (rather than a bare time.Now() call at call sites) so tests can
// eventually substitute a virtual clock without touching callers.
func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) run() {
	defer close(l.done)
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-l.ctx.Done():
			return
		case f := <-l.work:
			f()
		case now := <-tick.C:
			l.fireDue(now)
		}
	}
}

func (l *Loop) fireDue(now time.Time) {
	var due []*timerEntry
	l.mu.Lock()
	for len(l.timers) > 0 && !l.timers[0].at.After(now) {
		e := heap.Pop(&l.timers).(*timerEntry)
		due = append(due, e)
	}
	l.mu.Unlock()
	for _, e := range due {
		e.fn()
		if e.period > 0 {
			l.mu.Lock()
			e.at = now.Add(e.period)
			heap.Push(&l.timers, e)
			l.mu.Unlock()
		}
	}
}

type timerEntry struct {
	id     uint64
	at     time.Time
	period time.Duration
	fn     func()
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)         { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
