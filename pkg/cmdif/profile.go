package cmdif

import (
	"math"
	"time"
)

// QueueClass selects one of the three transmit queues (spec §4.2). Commands
// carrying arsdk.BufferStreamAck share the with-ack queue's pacing/retry
// behaviour; the spec does not define a fourth queue for it.
type QueueClass int

const (
	QueueNoAck QueueClass = iota
	QueueWithAck
	QueueHighPrio
	numQueueClasses
)

func (c QueueClass) String() string {
	switch c {
	case QueueNoAck:
		return "no-ack"
	case QueueWithAck:
		return "with-ack"
	case QueueHighPrio:
		return "high-prio-with-ack"
	default:
		return "unknown"
	}
}

// QueueConfig is the per-queue pacing/retry/ack policy (spec §4.2 table).
type QueueConfig struct {
	MaxTxRate  time.Duration
	AckTimeout time.Duration
	MaxRetries int
	Overwrite  bool
}

// Profile bundles the three queues' configs with the ack-queue-id offset
// used to compute the receive-side ack queue for a given transmit queue.
type Profile struct {
	Queues         [numQueueClasses]QueueConfig
	AckQueueOffset uint8
}

// NetProfile is the net-backend queue profile (spec §4.2).
var NetProfile = Profile{
	Queues: [numQueueClasses]QueueConfig{
		QueueNoAck:    {Overwrite: true},
		QueueWithAck:  {AckTimeout: 150 * time.Millisecond, MaxRetries: 5},
		QueueHighPrio: {AckTimeout: 150 * time.Millisecond, MaxRetries: math.MaxInt32},
	},
	AckQueueOffset: 10,
}

// BLEProfile is the BLE-backend queue profile. The BLE frame format itself
// is an open question the spec leaves unresolved; only the queue policy
// constants are specified, so that's all this profile carries.
var BLEProfile = Profile{
	Queues: [numQueueClasses]QueueConfig{
		QueueNoAck:    {Overwrite: true},
		QueueWithAck:  {MaxTxRate: 50 * time.Millisecond, AckTimeout: 750 * time.Millisecond, MaxRetries: 5},
		QueueHighPrio: {AckTimeout: 150 * time.Millisecond, MaxRetries: math.MaxInt32},
	},
	AckQueueOffset: 8,
}
