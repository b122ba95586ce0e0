// Package logging builds the process logger: slog text output to stdout and,
// when a file is configured, a size-rotated copy of the same lines.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level     string
	File      string
	MaxSizeMB int
}

// New returns a logger and a closer for the rotated file. The closer is a
// no-op when logging only to stdout.
func New(opts Options) (*slog.Logger, io.Closer) {
	return NewWithWriter(os.Stdout, opts)
}

// NewWithWriter is New with a custom console writer.
func NewWithWriter(console io.Writer, opts Options) (*slog.Logger, io.Closer) {
	var out io.Writer = console
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		lj := &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  maxSize, // megabytes
			Compress: true,
		}
		out = io.MultiWriter(console, lj)
		closer = lj
	}
	h := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	return slog.New(h), closer
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else is info.
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
