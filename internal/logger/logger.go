// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and is installed as
// the slog default, so package-level slog calls share the configuration.
package logger

import (
	"log/slog"
	"os"
)

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	slog.SetDefault(logger)
	return logger
}

// Pair returns the standard attribute for per-pair log context.
func Pair(pair string) slog.Attr {
	return slog.String("pair", pair)
}

// Gate returns the standard attribute for gate-rejection log context.
func Gate(name string) slog.Attr {
	return slog.String("gate", name)
}
