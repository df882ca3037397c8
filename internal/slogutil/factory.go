package slogutil

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Options describes the logger stack for a scan run.
type Options struct {
	Level      slog.Level
	Color      bool   // colorize terminal output
	FilePath   string // optional log file; empty disables file logging
	MaxSize    string // rotation threshold for the log file, e.g. "10MB"
	MaxBackups int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Build assembles the logger for a scan run: a terminal handler on w plus
// an optional rotating file handler that always captures debug. The
// returned closer owns any opened log files and must be closed when the
// run ends.
func Build(w io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	var term slog.Handler
	if opts.Color {
		term = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
		})
	} else {
		term = NewDocrotHandler(w, &slog.HandlerOptions{Level: opts.Level})
	}

	if opts.FilePath == "" {
		return slog.New(term), nopCloser{}, nil
	}

	fileHandler, closer, err := openFileHandler(opts.FilePath, slog.LevelDebug, opts.MaxSize, opts.MaxBackups)
	if err != nil {
		return nil, nil, err
	}

	return slog.New(NewTeeHandler(term, fileHandler)), closer, nil
}

// openFileHandler opens a log file handler, with rotation when maxSize
// parses to a positive byte count.
func openFileHandler(path string, level slog.Level, maxSize string, maxBackups int) (slog.Handler, io.Closer, error) {
	size := ParseSize(maxSize)
	if size <= 0 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		return NewDocrotHandler(f, &slog.HandlerOptions{Level: level}), f, nil
	}

	rf, err := OpenRotatingFile(path, size, maxBackups)
	if err != nil {
		return nil, nil, err
	}
	return NewDocrotHandler(rf, &slog.HandlerOptions{Level: level}), rf, nil
}
