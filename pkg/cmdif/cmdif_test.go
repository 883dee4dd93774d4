package cmdif

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/loop"
)

func testCommand(bt arsdk.BufferType) Command {
	return Command{ProjectID: 1, ClassID: 2, CommandID: 3, Buffer: []byte("payload"), BufferType: bt}
}

// echoAcker runs a minimal peer in its own goroutine that acks every
// ack-bearing frame it receives, posting each ack send onto l, so the CommandInterface under test gets real acks
// without needing a second full CommandInterface.
func echoAcker(l *loop.Loop, tx *pipeTransport, offset uint8) {
	go func() {
		for {
			f, err := tx.Recv(context.Background())
			if err != nil {
				return
			}
			if f.QueueID >= offset {
				continue // it's an ack frame, nothing to echo
			}
			ackFrame := f
			ackFrame.QueueID = f.QueueID + offset
			ackFrame.Payload = nil
			l.Post(func() {
				_ = tx.Send(context.Background(), ackFrame)
			})
		}
	}()
}

func TestSendWithAckIsAcked(t *testing.T) {
	l := loop.New()
	defer l.Stop()

	a, b := newTransportPipe()
	echoAcker(l, b, NetProfile.AckQueueOffset)

	ci := New(l, a, NetProfile, nil, nil)
	defer ci.Stop()

	var mu sync.Mutex
	var statuses []Status
	done := make(chan struct{})
	ci.Send(testCommand(arsdk.BufferWithAck), func(s Status, d bool) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
		if d {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("command never reached a terminal status")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) == 0 || statuses[len(statuses)-1] != StatusAckReceived {
		t.Fatalf("statuses = %v, want terminal ack-received", statuses)
	}
}

func TestSendWithAckTimesOutAfterRetries(t *testing.T) {
	l := loop.New()
	defer l.Stop()

	a, b := newTransportPipe()
	_ = b // peer never acks

	ci := New(l, a, NetProfile, nil, nil)
	defer ci.Stop()

	done := make(chan Status, 1)
	ci.Send(testCommand(arsdk.BufferWithAck), func(s Status, d bool) {
		if d {
			done <- s
		}
	})

	select {
	case s := <-done:
		if s != StatusTimeout {
			t.Fatalf("terminal status = %v, want timeout", s)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("command never timed out")
	}
}

func TestNoAckQueueOverwriteCancelsOldest(t *testing.T) {
	l := loop.New()
	defer l.Stop()

	a, b := newTransportPipe()
	_ = b

	ci := New(l, a, NetProfile, nil, nil)
	defer ci.Stop()

	first := make(chan Status, 1)
	ci.Send(testCommand(arsdk.BufferNoAck), func(s Status, d bool) {
		if d {
			first <- s
		}
	})

	second := make(chan Status, 1)
	ci.Send(testCommand(arsdk.BufferNoAck), func(s Status, d bool) {
		if d {
			second <- s
		}
	})

	select {
	case s := <-first:
		if s != StatusCanceled {
			t.Fatalf("first command terminal status = %v, want canceled", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first command was never canceled")
	}

	select {
	case s := <-second:
		if s != StatusSent {
			t.Fatalf("second command terminal status = %v, want sent", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second command was never sent")
	}
}

func TestCancelAllCancelsPending(t *testing.T) {
	l := loop.New()
	defer l.Stop()

	a, b := newTransportPipe()
	_ = b

	ci := New(l, a, NetProfile, nil, nil)
	defer ci.Stop()

	done := make(chan Status, 1)
	ci.Send(testCommand(arsdk.BufferWithAck), func(s Status, d bool) {
		if d {
			done <- s
		}
	})
	ci.CancelAll()

	select {
	case s := <-done:
		if s != StatusCanceled {
			t.Fatalf("terminal status = %v, want canceled", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command was never canceled")
	}
}

func TestStopAbortsPending(t *testing.T) {
	l := loop.New()
	defer l.Stop()

	a, b := newTransportPipe()
	_ = b

	ci := New(l, a, NetProfile, nil, nil)

	done := make(chan Status, 1)
	ci.Send(testCommand(arsdk.BufferWithAck), func(s Status, d bool) {
		if d {
			done <- s
		}
	})
	ci.Stop()

	select {
	case s := <-done:
		if s != StatusAborted {
			t.Fatalf("terminal status = %v, want aborted", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command was never aborted")
	}
}
