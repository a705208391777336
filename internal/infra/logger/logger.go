package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide JSON logger. Debug level in dev, info otherwise.
func New(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("app", "asset-subs")
}
