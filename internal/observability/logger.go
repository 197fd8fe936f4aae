package observability

import (
	"log/slog"
	"os"

	"github.com/terralens/prospect-fusion/internal/config"
)

// NewLogger builds the service logger from config. Unrecognized levels fall
// back to info and unrecognized formats to JSON, so a typo in an env var
// never costs the logs entirely.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
