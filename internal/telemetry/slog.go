// slog.go configures the process-wide structured logger.
package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the slog default logger for the whole process.
//
// Shiplog writes one log stream to stderr. "json" selects the JSONHandler for
// log shippers; any other format value selects the human-readable TextHandler
// for local development. Levels are debug, info, warn, and error
// (case-insensitive), falling back to info. Debug additionally records source
// locations, which are too costly to leave on in normal operation.
//
// Installing the default logger means handlers, repositories, and jobs can
// call slog.Info and friends without threading a *slog.Logger around.
func SetupLogger(format, level string) {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logging configured", "format", format, "level", lvl.String())
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
