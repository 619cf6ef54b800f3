package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dikkadev/prettyslog"
	"go.bug.st/serial"

	"github.com/sweeney/tappie/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging installs the default slog handler. When a serial console is
// configured the log is mirrored to it; the returned closer releases the
// port.
func setupLogging(cfg config.Log) (io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.Serial != "" {
		port, err := serial.Open(cfg.Serial, &serial.Mode{BaudRate: cfg.Baud})
		if err != nil {
			return nil, fmt.Errorf("open serial console %s: %w", cfg.Serial, err)
		}
		w = io.MultiWriter(os.Stderr, port)
		closer = port
	}

	slog.SetDefault(newLogger(w, level))
	return closer, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(prettyslog.NewPrettyslogHandler("tappie",
		prettyslog.WithLevel(level),
		prettyslog.WithWriter(w),
	))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
