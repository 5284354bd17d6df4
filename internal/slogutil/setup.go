package slogutil

import (
	"io"
	"log/slog"
	"os"
)

// Options describes where and how a process logs.
type Options struct {
	Level  slog.Level
	Format Format
	// File, when set, receives all records. Warnings and errors are still
	// mirrored to Stderr so editors surface them.
	File       string
	MaxSize    string
	MaxBackups int
	Stderr     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds a logger from opts. The closer releases the log file, if any.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if opts.File == "" {
		return slog.New(NewHandler(stderr, opts.Level, opts.Format)), nopCloser{}, nil
	}

	rf, err := OpenRotatingFile(opts.File, ParseSize(opts.MaxSize), opts.MaxBackups)
	if err != nil {
		return nil, nil, err
	}

	mirror := opts.Level
	if mirror < slog.LevelWarn {
		mirror = slog.LevelWarn
	}
	h := NewTeeHandler(
		NewHandler(rf, opts.Level, opts.Format),
		NewHandler(stderr, mirror, opts.Format),
	)
	return slog.New(h), rf, nil
}
