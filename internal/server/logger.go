// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// setupLogger installs the process-wide slog logger. Text output goes
// through tint for readable local runs; JSON is for log shippers.
func setupLogger(level, format string) {
	slog.SetDefault(slog.New(newLogHandler(os.Stdout, level, format)))
}

func newLogHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return tint.NewHandler(w, &tint.Options{Level: opts.Level})
}

// parseLevel maps the configured level name to a slog level. Unknown
// names fall back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch level {
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
