// Package qllog configures the compiler's structured logging.
//
// Grounded on the teacher's util.InitSlog (util/logutil.go): slog.TextHandler
// to stderr, level selected by the LOG_LEVEL environment variable.
package qllog

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the default slog logger. An explicit override (e.g. a
// -log-level CLI flag) takes precedence over LOG_LEVEL; pass "" to fall
// back to the environment, matching util.InitSlog's env-only behavior.
func Init(override string) {
	levelStr := override
	if levelStr == "" {
		levelStr, _ = os.LookupEnv("LOG_LEVEL")
	}
	if levelStr == "" {
		return
	}

	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
