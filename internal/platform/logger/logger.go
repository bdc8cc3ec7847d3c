package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger using slog. Every line carries the
// service name and environment so greenhop logs stay filterable when shipped
// alongside the gateway services. GREENHOP_LOG_LEVEL overrides the level
// (debug, info, warn, error); development environments default to debug.
func New(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}
	if v := os.Getenv("GREENHOP_LOG_LEVEL"); v != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(v)); err == nil {
			level = parsed
		}
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(
		"service", "greenhop",
		"environment", environment,
	)
}
