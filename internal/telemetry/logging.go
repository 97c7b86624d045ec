// Package telemetry configures the process-wide slog logger.
package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel reads PJM_LOG_LEVEL (DEBUG, INFO, WARN, ERROR). Default: INFO.
func LogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv("PJM_LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w. PJM_LOG_FORMAT selects "json" or
// "text" (default).
func NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     LogLevel(),
		AddSource: LogLevel() == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("PJM_LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup installs a logger writing to w as the default and returns it.
func Setup(w io.Writer) *slog.Logger {
	logger := NewLogger(w)
	slog.SetDefault(logger)
	return logger
}

// SetupFile logs to path (appending), or discards everything when path is
// empty. The TUI owns the terminal, so it never logs to stderr. The returned
// close function must be called on exit.
func SetupFile(path string) (*slog.Logger, func() error, error) {
	if path == "" {
		return Setup(io.Discard), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return Setup(f), f.Close, nil
}
