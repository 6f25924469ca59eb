// Package logging builds the slog loggers used across the repositories.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/lmittmann/tint"
)

// New returns a logger writing to stdout. Format "json" selects the JSON
// handler; anything else uses tint's colored text output.
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.TimeOnly,
		})
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component scopes a logger to a named component.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}
	return logger.With("component", name)
}

// Error logs err with its go-errors attributes.
func Error(logger *slog.Logger, msg string, err error, args ...any) {
	attrs := goerrors.ToSlogAttributes(err)
	for _, a := range attrs {
		args = append(args, a)
	}
	logger.Error(msg, args...)
}
