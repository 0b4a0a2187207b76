// Package logging builds the service logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is json or text.
	Format string `koanf:"format"`
	// File, when set, receives a copy of every record and is rotated by size.
	File string `koanf:"file"`
}

func DefaultConfig() Config {
	return Config{Level: "info", Format: "json"}
}

// New returns a logger writing to out, and to cfg.File when configured.
// The returned closer releases the log file.
func New(cfg Config, out io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if out == nil {
		out = os.Stdout
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rot := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		out = io.MultiWriter(out, rot)
		closer = rot
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(out, opts)
	case "text":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}
	return slog.New(h), closer, nil
}

func ParseLevel(s string) (slog.Level, error) {
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
	return 0, fmt.Errorf("unsupported log level %q", s)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
