package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns the process logger: JSON in prod, text elsewhere.
func New(appEnv, level string) *slog.Logger {
	return newWithWriter(os.Stdout, appEnv, level)
}

func newWithWriter(w io.Writer, appEnv, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if appEnv == "prod" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
