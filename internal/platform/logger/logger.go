// Package logger configures the process-wide slog logger. Lifecycle and
// verification handlers log through it so every line carries the same JSON
// shape and the service field.
package logger

import (
	"log/slog"
	"os"
)

// New returns the service's structured JSON logger. Development environments
// log at debug so ledger submit/confirm round-trips are visible.
func New(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", "attest")
}
