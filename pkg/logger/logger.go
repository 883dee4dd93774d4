// Package logger implements the two logging concerns this module needs:
// a small Logger interface for the module's own diagnostic output
// (grounded on chatgear/logger.go's Printf/Errorf shape, backed by
// log/slog), and the binary framed event log spec §4.8/§6 describes for
// recording command-interface traffic.
package logger

import (
	"fmt"
	"log/slog"
)

func sprintf(format string, args ...any) string { return fmt.Sprintf(format, args...) }

// Logger is the narrow diagnostic-logging surface of this package.
// NewRecorder takes one (nil means DefaultLogger()); no other component
// in this module takes a Logger.
// Grounded on the teacher's chatgear/logger.go Logger interface.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// slogLogger adapts a *slog.Logger to the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// SlogLogger wraps an existing *slog.Logger as a Logger.
func SlogLogger(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

// DefaultLogger returns a Logger backed by slog.Default().
func DefaultLogger() Logger {
	return &slogLogger{l: slog.Default()}
}

func (s *slogLogger) Debugf(format string, args ...any) { s.l.Debug(sprintf(format, args...)) }
func (s *slogLogger) Infof(format string, args ...any)  { s.l.Info(sprintf(format, args...)) }
func (s *slogLogger) Errorf(format string, args ...any) { s.l.Error(sprintf(format, args...)) }
