package main

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a text slog.Logger on stderr; stdout only carries the
// segmentation output paths.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
