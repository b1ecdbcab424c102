// Package logger configures the process-wide slog logger once so every
// package logs with the same level and format. LOG_LEVEL and LOG_FORMAT
// control it.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// defaultLogger is shared by the whole process.
var defaultLogger *slog.Logger

// Setup builds the default logger from the environment.
// LOG_LEVEL: debug|info|warn|error (default info).
// LOG_FORMAT: json|text (default text).
// Output always goes to stderr.
func Setup() *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	defaultLogger = slog.New(h)
	return defaultLogger
}

// L returns the default logger, running Setup on first use.
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup()
	}
	return defaultLogger
}
