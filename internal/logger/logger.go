package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ecocollect-billing/internal/config"
)

// NewLogger builds the process-wide slog.Logger. Output is JSON on
// stdout; every line carries the service name so the gateway and the
// collection processor can share one log pipeline. Source locations are
// emitted only at debug level.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	logger := slog.New(handler)
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name)
	}

	logger.Info("Logging configured", "level", level.String())
	return logger
}

// parseLevel maps the configured level string onto slog's levels,
// treating anything unrecognized as info.
func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
