package logger

import (
	"io"
	"sync"
)

// Recorder serializes frame writes from possibly many goroutines onto a
// single ordered stream on w, assigning a monotonic sequence number per
// instance (spec §6's `seq` header field) and a monotonic chunk id.
type Recorder struct {
	mu     sync.Mutex
	w      io.Writer
	seqs   map[uint32]uint32
	chunk  byte
	logger Logger
}

// NewRecorder creates a Recorder writing framed events to w.
func NewRecorder(w io.Writer, log Logger) *Recorder {
	if log == nil {
		log = DefaultLogger()
	}
	return &Recorder{w: w, seqs: make(map[uint32]uint32), logger: log}
}

func (r *Recorder) next(instanceID uint32) (seq uint32, chunk byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq = r.seqs[instanceID]
	r.seqs[instanceID] = seq + 1
	chunk = r.chunk
	r.chunk++
	return seq, chunk
}

// LogCmd implements spec §4.8's log_cmd: writes a v3 header
// {event=CmdPushed, instance_id, buffer_type, seq=0, count=0} followed by
// the anonymized command (AnonymizeCommand).
func (r *Recorder) LogCmd(instanceID uint32, cmd RawCommand) {
	seq, chunk := r.next(instanceID)
	h := Header{Event: EventCmdPushed, InstanceID: instanceID, Type: uint32(cmd.BufferType), Seq: seq}
	if err := WriteFrame(r.w, chunk, h, AnonymizeCommand(cmd)); err != nil {
		r.logger.Errorf("logger: log_cmd: %v", err)
	}
}

// LogCmdSendStatus implements spec §4.8's log_cmd_send_status: a
// header-only entry (count=1 for partially-packed/timeout, per the
// mapping table spec §4.8 refers to as "a small mapping table").
func (r *Recorder) LogCmdSendStatus(instanceID uint32, event Event, count uint32) {
	seq, chunk := r.next(instanceID)
	h := Header{Event: event, InstanceID: instanceID, Seq: seq, Count: count}
	if err := WriteFrame(r.w, chunk, h, nil); err != nil {
		r.logger.Errorf("logger: log_cmd_send_status: %v", err)
	}
}

// LogPackStatus implements spec §4.8's log_pack_send_status/log_pack_recv_
// status: a header-only entry with no payload.
func (r *Recorder) LogPackStatus(instanceID uint32, event Event) {
	seq, chunk := r.next(instanceID)
	h := Header{Event: event, InstanceID: instanceID, Seq: seq}
	if err := WriteFrame(r.w, chunk, h, nil); err != nil {
		r.logger.Errorf("logger: log_pack_status: %v", err)
	}
}
