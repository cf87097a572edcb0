// Package diag defines the diagnostics sink injected into runtime components.
//
// The runtime never logs through an ambient global: every component receives
// a Logger at construction. The default adapter wraps log/slog so the hosting
// application can plug in any handler; tests use Nop().
package diag

import "log/slog"

// Logger is the minimal structured logging interface the runtime depends on.
// Args are slog-style alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// slogAdapter wraps *slog.Logger to implement Logger.
type slogAdapter struct {
	l *slog.Logger
}

func (s *slogAdapter) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogAdapter) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogAdapter) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogAdapter) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// Slog adapts a *slog.Logger into a Logger.
func Slog(l *slog.Logger) Logger {
	return &slogAdapter{l: l}
}

// Default returns a Logger backed by slog.Default().
func Default() Logger {
	return Slog(slog.Default())
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a Logger that discards all records.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns l, or a no-op Logger when l is nil. Components call this in
// their constructors so a zero Config stays usable.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
