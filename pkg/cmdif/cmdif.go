// Package cmdif implements the command interface: the framed, sequenced,
// partially-reliable command exchange described in spec §4.2. One
// CommandInterface sits on top of a transport.Transport (a UDP pair for the
// net backend, a pkg/mux Channel for the mux backend) and drives three
// transmit queues, ack/retry bookkeeping, duplicate/out-of-order rejection
// on receive, and a rolling link-quality estimate.
//
// Every method that touches queue state runs on the owning pkg/loop.Loop,
// matching the single-threaded cooperative model the rest of this module
// assumes (spec §5): Send, CancelAll and Stop all Post their work rather
// than mutating state directly.
package cmdif

import (
	"context"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/loop"
	"github.com/arsdkgo/arsdkctrl/pkg/transport"
)

// Status is the taxonomy of values delivered to a command's StatusFunc
// (spec §4.2 send path step 5). partially-packed/packed describe the
// underlying transport's datagram-packing behaviour, which this module
// treats as an external framing concern (spec §1) and does not model; only
// Sent/AckReceived/Timeout/Canceled/Aborted are ever fired here.
type Status int

const (
	StatusSent Status = iota
	StatusAckReceived
	StatusTimeout
	StatusCanceled
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusAckReceived:
		return "ack-received"
	case StatusTimeout:
		return "timeout"
	case StatusCanceled:
		return "canceled"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// StatusFunc is called on every status transition of one enqueued command.
// done is true exactly once, on the terminal transition.
type StatusFunc func(status Status, done bool)

// LinkQuality is delivered to OnLinkQuality roughly once a second (spec
// §4.2 "Link quality").
type LinkQuality struct {
	TxQuality float64 // successfully acked / attempts * 100
	RxQuality float64 // frames received in sequence / frames received * 100
	RxUseful  float64 // non-duplicate frames / frames received * 100
}

type pendingCmd struct {
	cmd      Command
	seq      uint8
	retries  int
	status   StatusFunc
	deadline time.Time
}

type queueState struct {
	cfg      QueueConfig
	inFlight *pendingCmd
	waiting  []*pendingCmd
	nextSeq  uint8
	lastSend time.Time

	rxInit    bool
	lastSeen  uint8
}

// CommandInterface is one per device, created on demand (spec §3).
type CommandInterface struct {
	l       *loop.Loop
	tx      transport.Transport
	profile Profile
	queues  [numQueueClasses]*queueState

	recvCmd       func(Command)
	onLinkQuality func(LinkQuality)

	txAttempts, txAcked          int
	rxTotal, rxInSeq, rxNonDup   int

	paceTimer *loop.Timer
	linkTimer *loop.Timer

	stopRecv context.CancelFunc
	stopped  bool
}

// New creates a CommandInterface bound to l and tx, using profile for queue
// policy (cmdif.NetProfile or cmdif.BLEProfile), and dispatching received
// commands to recvCmd. recvCmd and onLinkQuality are invoked from the loop
// goroutine.
func New(l *loop.Loop, tx transport.Transport, profile Profile, recvCmd func(Command), onLinkQuality func(LinkQuality)) *CommandInterface {
	ci := &CommandInterface{
		l:             l,
		tx:            tx,
		profile:       profile,
		recvCmd:       recvCmd,
		onLinkQuality: onLinkQuality,
	}
	for i := range ci.queues {
		ci.queues[i] = &queueState{cfg: profile.Queues[i]}
	}

	ctx, cancel := context.WithCancel(context.Background())
	ci.stopRecv = cancel
	go ci.recvLoop(ctx)

	ci.paceTimer = l.Ticker(5*time.Millisecond, ci.tick)
	ci.linkTimer = l.Ticker(time.Second, ci.reportLinkQuality)
	return ci
}

func classFor(bt arsdk.BufferType) QueueClass {
	switch bt {
	case arsdk.BufferNoAck:
		return QueueNoAck
	case arsdk.BufferHighPrioWithAck:
		return QueueHighPrio
	default:
		// with-ack and stream-ack both ride the with-ack queue's policy.
		return QueueWithAck
	}
}

// Send enqueues cmd on the queue selected by its BufferType. onStatus is
// called on every status transition; it may be nil.
func (ci *CommandInterface) Send(cmd Command, onStatus StatusFunc) {
	if onStatus == nil {
		onStatus = func(Status, bool) {}
	}
	ci.l.Post(func() {
		if ci.stopped {
			onStatus(StatusAborted, true)
			return
		}
		class := classFor(cmd.BufferType)
		q := ci.queues[class]

		entry := &pendingCmd{cmd: cmd, seq: q.nextSeq, retries: q.cfg.MaxRetries, status: onStatus}
		q.nextSeq++

		if q.cfg.Overwrite {
			if len(q.waiting) > 0 {
				old := q.waiting[0]
				q.waiting = q.waiting[1:]
				old.status(StatusCanceled, true)
			} else if q.inFlight != nil {
				old := q.inFlight
				q.inFlight = nil
				old.status(StatusCanceled, true)
			}
		}
		q.waiting = append(q.waiting, entry)
	})
}

// CancelAll drains every queue; each pending command's status fires with
// StatusCanceled (spec §4.2 "Cancellation").
func (ci *CommandInterface) CancelAll() {
	ci.l.Post(func() {
		ci.drain(StatusCanceled)
	})
}

// Stop tears down the interface: every pending command is reported
// StatusAborted instead of StatusCanceled (spec §5 "Interface teardown"),
// then the underlying transport is closed.
func (ci *CommandInterface) Stop() {
	ci.l.Post(func() {
		if ci.stopped {
			return
		}
		ci.stopped = true
		ci.drain(StatusAborted)
		ci.paceTimer.Stop()
		ci.linkTimer.Stop()
		ci.stopRecv()
		ci.tx.Close()
	})
}

func (ci *CommandInterface) drain(reason Status) {
	for _, q := range ci.queues {
		if q.inFlight != nil {
			q.inFlight.status(reason, true)
			q.inFlight = nil
		}
		for _, e := range q.waiting {
			e.status(reason, true)
		}
		q.waiting = nil
	}
}

// tick runs on the loop every 5ms: it resends/times-out the in-flight
// command of each ack-bearing queue and, once a queue is free and its
// pacing interval has elapsed, sends the next waiting command.
func (ci *CommandInterface) tick() {
	if ci.stopped {
		return
	}
	now := time.Now()
	for class, q := range ci.queues {
		if q.inFlight != nil {
			if now.Before(q.inFlight.deadline) {
				continue
			}
			q.inFlight.retries--
			if q.inFlight.retries < 0 {
				done := q.inFlight
				q.inFlight = nil
				done.status(StatusTimeout, true)
			} else {
				ci.transmit(QueueClass(class), q, q.inFlight, now)
				continue
			}
		}
		if q.inFlight == nil && len(q.waiting) > 0 && now.Sub(q.lastSend) >= q.cfg.MaxTxRate {
			next := q.waiting[0]
			q.waiting = q.waiting[1:]
			ci.transmit(QueueClass(class), q, next, now)
		}
	}
}

func (ci *CommandInterface) transmit(class QueueClass, q *queueState, e *pendingCmd, now time.Time) {
	ci.txAttempts++
	frame := transport.Frame{QueueID: uint8(class), Seq: e.seq, Payload: e.cmd.Encode()}
	sendCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = ci.tx.Send(sendCtx, frame)
	q.lastSend = now
	e.status(StatusSent, false)

	if class == QueueNoAck {
		e.status(StatusSent, true)
		return
	}
	e.deadline = now.Add(q.cfg.AckTimeout)
	q.inFlight = e
}

// recvLoop pulls frames off the transport and hands them to handleFrame on
// the loop goroutine, so all queue state mutation stays single-threaded.
func (ci *CommandInterface) recvLoop(ctx context.Context) {
	for {
		f, err := ci.tx.Recv(ctx)
		if err != nil {
			return
		}
		frame := f
		ci.l.Post(func() { ci.handleFrame(frame) })
	}
}

func (ci *CommandInterface) handleFrame(f transport.Frame) {
	if ci.stopped {
		return
	}
	offset := ci.profile.AckQueueOffset
	if f.QueueID >= offset {
		ci.handleAck(QueueClass(f.QueueID-offset), f.Seq)
		return
	}
	class := QueueClass(f.QueueID)
	if class < 0 || int(class) >= int(numQueueClasses) {
		return
	}
	q := ci.queues[class]
	ci.rxTotal++

	if class != QueueNoAck {
		ackFrame := transport.Frame{QueueID: uint8(class) + offset, Seq: f.Seq}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = ci.tx.Send(ctx, ackFrame)
		cancel()
	}

	inSeq := !q.rxInit || f.Seq == q.lastSeen+1
	dup := q.rxInit && f.Seq == q.lastSeen
	if inSeq {
		ci.rxInSeq++
		ci.rxNonDup++
		q.lastSeen = f.Seq
		q.rxInit = true
		if cmd, err := DecodeCommand(f.Payload); err == nil && ci.recvCmd != nil {
			ci.recvCmd(cmd)
		}
		return
	}
	if dup {
		return
	}
	// out-of-order/old frame: dropped, but still counts toward rx_useful's
	// denominator (it was received) while excluded from the numerator.
}

func (ci *CommandInterface) handleAck(class QueueClass, seq uint8) {
	if class < 0 || int(class) >= int(numQueueClasses) {
		return
	}
	q := ci.queues[class]
	if q.inFlight == nil || q.inFlight.seq != seq {
		return
	}
	e := q.inFlight
	q.inFlight = nil
	ci.txAcked++
	e.status(StatusAckReceived, true)
}

func (ci *CommandInterface) reportLinkQuality() {
	if ci.onLinkQuality == nil {
		ci.txAttempts, ci.txAcked, ci.rxTotal, ci.rxInSeq, ci.rxNonDup = 0, 0, 0, 0, 0
		return
	}
	lq := LinkQuality{}
	if ci.txAttempts > 0 {
		lq.TxQuality = float64(ci.txAcked) / float64(ci.txAttempts) * 100
	}
	if ci.rxTotal > 0 {
		lq.RxQuality = float64(ci.rxInSeq) / float64(ci.rxTotal) * 100
		lq.RxUseful = float64(ci.rxNonDup) / float64(ci.rxTotal) * 100
	}
	ci.txAttempts, ci.txAcked, ci.rxTotal, ci.rxInSeq, ci.rxNonDup = 0, 0, 0, 0, 0
	ci.onLinkQuality(lq)
}
