package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger for both the web and worker binaries.
// Development deployments read text output; LOG_FORMAT=json switches to the
// structured form the log shipper ingests.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
