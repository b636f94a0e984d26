// Package logger constructs the service-wide structured logger.
package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Level defaults to info;
// set VIDGATE_LOG_LEVEL=debug for local work.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("VIDGATE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
