package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the global slog default logger based on the format and
// level strings from application configuration.
//
// format "json" selects a JSONHandler (machine readable, for production);
// anything else selects a TextHandler. level is one of "debug", "info",
// "warn", "error" (case-insensitive) and defaults to "info". Source locations
// are only attached at debug level.
//
// Installing the result as the default means handlers, repositories, and jobs
// can call slog.Info/Warn/Error directly without carrying a *slog.Logger.
func SetupLogger(format, level string) {
	lvl := parseLevel(level)
	slog.SetDefault(slog.New(newHandler(format, os.Stdout, lvl)))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func newHandler(format string, w io.Writer, lvl slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
