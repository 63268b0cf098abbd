// Package logging builds the client's file logger. The terminal belongs to
// the TUI, so everything is written to a rotating log file instead.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options describes where and how much to log
type Options struct {
	File       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a logger writing to a rotating file. Close the returned
// closer on shutdown to flush and release the file.
func New(opts Options) (*log.Logger, io.Closer, error) {
	if opts.File == "" {
		return nil, nil, fmt.Errorf("log file is required")
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}

	logger, err := NewWriter(rotator, opts.Level)
	if err != nil {
		_ = rotator.Close()
		return nil, nil, err
	}
	return logger, rotator, nil
}

// NewWriter returns a logger at the named level writing to w
func NewWriter(w io.Writer, level string) (*log.Logger, error) {
	lvl := log.WarnLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}), nil
}
