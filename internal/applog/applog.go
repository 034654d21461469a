// Package applog builds the process diagnostics logger: startup messages,
// retry backoff warnings, malformed-reply notices. It is deliberately
// distinct from internal/iolog, which records structured per-call data for
// later analysis rather than human-facing diagnostics.
package applog

import (
	"log/slog"
	"os"
)

// New returns a *slog.Logger writing JSON to stdout at the given level
// name (debug|info|warn|error; unrecognized names fall back to info).
func New(level string) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
