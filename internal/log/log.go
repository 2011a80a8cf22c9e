// Package log builds the slog loggers the gateway injects everywhere.
//
// There is no global logger. Execute constructs one at startup and every
// component takes a log.Logger in its constructor, tagged with
// logger.With("component", ...). Tests pass NewNop.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger aliases *slog.Logger so components depend on the standard type
// without each declaring its own interface.
type Logger = *slog.Logger

// Config controls logger output. The zero value logs text at info level to
// stderr.
type Config struct {
	// Level is the minimum level emitted.
	Level slog.Level

	// JSON switches from text to JSON output, for log collectors.
	JSON bool

	// AddSource records the file:line of each call site.
	AddSource bool

	// Writer overrides the destination; nil means os.Stderr. Tests point
	// this at a buffer to assert on output.
	Writer io.Writer
}

// New creates a logger from cfg.
func New(cfg Config) Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// NewNop returns a logger that discards everything. Test use only.
func NewNop() Logger {
	return slog.New(slog.DiscardHandler)
}
