// Package logging builds the process-wide logger the sentinel's
// components derive their scoped loggers from.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a console logger at the given level. Unknown level
// strings fall back to debug so misconfiguration is loud, not silent.
func New(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromString(level),
	})
	return slog.New(handler)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
