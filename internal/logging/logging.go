// Package logging builds the console's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/iliyamo/reserveease-console/internal/config"
)

// New returns a logger writing to stderr with the configured level and
// format, tagged with the environment.
func New(cfg config.Config) *slog.Logger {
	return NewWriter(os.Stderr, cfg)
}

func NewWriter(w io.Writer, cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(cfg.Log.Level)}
	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	log := slog.New(h)
	if cfg.Env != "" {
		log = log.With("env", cfg.Env)
	}
	return log
}

// Level maps a level name to a slog level.  Unknown names mean info.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
