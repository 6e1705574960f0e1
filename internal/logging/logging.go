// Package logging configures the process-wide slog logger used by the
// long-running commands for progress and warning output on stderr.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger. level is one of debug, info, warn
// or error; json switches the handler format.
func Setup(level string, json bool) error {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "", "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return fmt.Errorf("logging: unknown level %q", level)
	}
	opts := &slog.HandlerOptions{Level: l}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}
