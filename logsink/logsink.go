// Package logsink adapts the mesh's (time, level, code, data) event
// stream — modeled on original_source/include/vsm/logger.hpp's Logger
// (a Level plus a (Level, Error, data, len) handler fan-out) — onto
// log/slog, the structured logger already used elsewhere for daemons
// and CLIs in this codebase's stack.
package logsink

import (
	"context"
	"log/slog"

	"github.com/relaymesh/spatialmesh/codes"
)

// Sink is the single polymorphism point for logging: emit one event.
// A mesh node never logs directly; every component holds a Sink and
// calls Emit.
type Sink interface {
	Emit(code codes.Code, data any)
}

// Slog adapts codes.Code events onto a *slog.Logger.
type Slog struct {
	Logger *slog.Logger
}

// New wraps logger, defaulting to slog.Default() the way gyre's own
// package-level log.Printf calls implicitly default to the stdlib
// logger when the caller never configures one.
func New(logger *slog.Logger) Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return Slog{Logger: logger}
}

func (s Slog) Emit(code codes.Code, data any) {
	level := toSlogLevel(code.Severity)
	if !s.Logger.Enabled(context.Background(), level) {
		return
	}
	attrs := []any{
		slog.Int("code", code.Num),
		slog.String("severity", code.Severity.String()),
	}
	if data != nil {
		attrs = append(attrs, slog.Any("data", data))
	}
	s.Logger.Log(context.Background(), level, code.Label, attrs...)
}

func toSlogLevel(sev codes.Severity) slog.Level {
	switch sev {
	case codes.Trace, codes.Debug:
		return slog.LevelDebug
	case codes.Info:
		return slog.LevelInfo
	case codes.Warn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Discard silently drops every event; useful in tests that want to
// assert on behavior without log noise.
type Discard struct{}

func (Discard) Emit(codes.Code, any) {}
