package logging

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured logger.
// If verbose == true, level = Debug, else Info.
func NewLogger(verbose bool) *slog.Logger {
	level := new(slog.LevelVar)
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// WithComponent tags a logger with the pipeline stage it belongs to, so
// per-stage output can be filtered out of a run's log stream.
func WithComponent(log *slog.Logger, name string) *slog.Logger {
	return log.With("component", name)
}
