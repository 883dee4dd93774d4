package logger

// RawCommand is the envelope this package anonymizes before logging,
// mirroring pkg/cmdif.Command's shape without importing it (pkg/cmdif
// depends on pkg/logger, not the reverse).
type RawCommand struct {
	ProjectID  uint8
	ClassID    uint8
	CommandID  uint16
	BufferType uint8
	Buffer     []byte
}

// AnonymizedCommand is what actually gets msgpack-encoded into a log_cmd
// frame: the envelope fields are never sensitive (they only say which
// command this is, not its content), but the buffer is handled per
// AnonymizeCommand's rules.
type AnonymizedCommand struct {
	ProjectID  uint8
	ClassID    uint8
	CommandID  uint16
	BufferType uint8
	Buffer     []byte `msgpack:",omitempty"`
	Redacted   bool
	Dropped    bool
}

// AnonymizeCommand applies spec §4.8's anonymisation rules to cmd before
// it's logged: WiFi security commands and user-storage encryption
// password commands (v1 and v2) need their sensitive field replaced with
// "********", and generic custom commands (ack and non-ack) need their
// msg_num decoded and checked against a sensitivity list (e.g.
// register_apc_token) before being allowed through unredacted.
//
// Both of those require decoding the IDL-generated buffer layout, and
// this module has no command-decoding registry anywhere in pkg/arsdk to
// do that with. Per the spec's own fallback for exactly this situation —
// "if msghub-style decoding is unavailable treat all generic commands as
// sensitive and drop" — every command buffer is therefore treated as
// sensitive and dropped, not just the generic-command ones: there's no
// way to tell a WiFi security key or storage password apart from
// anything else without the same decoding this module doesn't have. Only
// the envelope (which command this was) survives into the log; the
// payload never does.
func AnonymizeCommand(cmd RawCommand) AnonymizedCommand {
	return AnonymizedCommand{
		ProjectID:  cmd.ProjectID,
		ClassID:    cmd.ClassID,
		CommandID:  cmd.CommandID,
		BufferType: cmd.BufferType,
		Redacted:   true,
		Dropped:    true,
	}
}
