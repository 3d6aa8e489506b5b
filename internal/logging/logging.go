package logging

import (
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below debug and only shows with LOG_LEVEL=trace. pion's
// trace output lands here.
const LevelTrace = slog.LevelDebug - 4

// Init installs the default text logger on stderr. def applies when
// LOG_LEVEL is unset or unrecognised.
func Init(def slog.Level) {
	level := def

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if parsed, ok := ParseLevel(l); ok {
			level = parsed
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}

// ParseLevel maps LOG_LEVEL names, including the dev/prod aliases, to a level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, true
	case "dev", "development", "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error", "production", "prod":
		return slog.LevelError, true
	}
	return 0, false
}
