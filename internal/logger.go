package internal

import (
	"io"
	"log/slog"
	"os"

	"github.com/sensiblebit/cadeskit"
)

// ParseLogLevel converts a string log level name to a slog.Level.
// Recognized values: "debug", "info", "warning"/"warn", "error".
// Defaults to slog.LevelInfo for unrecognized values.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", level)
		return slog.LevelInfo
	}
}

// SetupLogger configures the default slog logger with the given level string
// on stderr.
func SetupLogger(level string) slog.Level {
	return SetupLoggerTo(os.Stderr, level)
}

// SetupLoggerTo is SetupLogger writing to w. At debug level the plugin error
// cause chains are logged too.
func SetupLoggerTo(w io.Writer, level string) slog.Level {
	lvl := ParseLogLevel(level)
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	cadeskit.SetDebug(lvl <= slog.LevelDebug)
	return lvl
}
