// Package logging wraps log/slog with the level and format handling this
// program's --log-format flag needs, grounded on Lucho00Cuba-mtc's
// internal/logger (same Init(level, format, output) shape, switched to
// returning a *Logger value scoped to one run instead of a package-global
// so concurrent tests never share log state).
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a thin, run-scoped wrapper around *slog.Logger.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing to output (os.Stderr if nil) in the given
// format ("json" or "text"; anything else falls back to "text") at the
// given level ("debug", "info", "warn", "error"; anything else is "info").
func New(level, format string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}

	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// LinkSwapped implements coordinator.EventSink, logging a link-swap at info
// level with the glyph as a field rather than printed inline, so JSON
// output stays structured.
func (l *Logger) LinkSwapped(original, redundant, glyph string) {
	l.Info("link swapped", "glyph", glyph, "original", original, "redundant", redundant)
}

// Demoted implements coordinator.EventSink, logging a recoverable failure
// at warn level.
func (l *Logger) Demoted(err error) {
	l.Warn("demoted error", "error", err)
}
