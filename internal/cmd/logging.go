package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/koscakluka/ema-debate/internal/config"
)

// newLogger writes text logs to the configured file, or to stderr when quiet
// is false. The terminal viewer owns the screen, so it runs quiet.
func newLogger(cfg config.Config, quiet bool) (*slog.Logger, func(), error) {
	var (
		writer  io.Writer = os.Stderr
		closeFn           = func() {}
	)

	switch {
	case cfg.Log.File != "":
		file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
		closeFn = func() { _ = file.Close() }
	case quiet:
		writer = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	return logger, closeFn, nil
}
