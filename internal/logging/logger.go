package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance used throughout the application.
var Logger *slog.Logger

func init() {
	InitLogger("")
}

// InitLogger points the global logger at stderr.
// An empty logLevel falls back to LOG_LEVEL, then to info.
func InitLogger(logLevel string) {
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}
	Logger = New(os.Stderr, logLevel)
}

// New returns a text logger writing to w at the given level.
func New(w io.Writer, logLevel string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	}))
}

// ParseLevel maps debug, info, warn and error to slog levels.
// Unknown values map to info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
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
