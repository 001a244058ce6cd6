package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/claude/spotter/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. Without a log file it writes text to
// stdout; with one it writes to a rotated file, teed to stdout if asked.
// The returned closer flushes and closes the file.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		closer = file
		out = file
		if cfg.Stdout {
			out = io.MultiWriter(os.Stdout, file)
		}
	}
	return NewWithWriter(out, cfg.Level), closer
}

// NewWithWriter builds a text logger writing to w at the named level.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level(level)}))
}

// Level maps a config level name to a slog level, defaulting to info.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
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
