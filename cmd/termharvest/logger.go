package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/use-agent/termharvest/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// initLogger configures the default slog logger. When cfg.File is set the
// output is also written to a rotating file; the returned closer flushes it.
func initLogger(cfg config.LogConfig) io.Closer {
	logger, closer := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	return closer
}

func newLogger(cfg config.LogConfig, stdout io.Writer) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var (
		w                = stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: 5,
			LocalTime:  true,
			Compress:   true,
		}
		w = io.MultiWriter(stdout, rotator)
		closer = rotator
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
