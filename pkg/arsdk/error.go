package arsdk

import "fmt"

// Kind is the closed taxonomy of error kinds surfaced to callers (spec §7).
// Callers should switch on Kind, not on error string content.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindBusy
	KindNotPermitted
	KindNotFound
	KindIOFailed
	KindCanceled
	KindAborted
	KindTimeout
	KindRejected
	KindUnsupported
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid-argument"
	case KindBusy:
		return "busy"
	case KindNotPermitted:
		return "not-permitted"
	case KindNotFound:
		return "not-found"
	case KindIOFailed:
		return "io-failed"
	case KindCanceled:
		return "canceled"
	case KindAborted:
		return "aborted"
	case KindTimeout:
		return "timeout"
	case KindRejected:
		return "rejected"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the typed error value this module returns from request-style
// operations. It carries a Kind (the authoritative taxonomy) plus an
// optional integer Code (e.g. an FTP reply code, or a handshake rejection
// status) and a wrapped cause.
type Error struct {
	Kind  Kind
	Code  int
	Msg   string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("arsdk: %s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	if e.Code != 0 {
		return fmt.Sprintf("arsdk: %s: %s (code %d)", e.Kind, e.Msg, e.Code)
	}
	return fmt.Sprintf("arsdk: %s: %s", e.Kind, e.Msg)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message and cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// WithCode sets the integer code and returns the same *Error for chaining.
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else
// KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if asError(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// asError is a tiny errors.As shim kept local to avoid importing errors
// just for this one call site used by KindOf.
func asError(err error, target **Error) bool {
	for err != nil {
		if ae, ok := err.(*Error); ok {
			*target = ae
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
