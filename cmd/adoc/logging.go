package main

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// failureLevels maps --failure-level values to logger levels. Nothing logs
// at fatal, so the default never fails a run on diagnostics alone.
var failureLevels = map[string]zerolog.Level{
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

func parseFailureLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.FatalLevel, nil
	}
	if lvl, ok := failureLevels[strings.ToLower(s)]; ok {
		return lvl, nil
	}
	return zerolog.NoLevel, fmt.Errorf("%w: %q (expected info, warn, error or fatal)", ErrInvalidFailureLevel, s)
}

// failureCounter is a zerolog hook counting events at or above level.
type failureCounter struct {
	level zerolog.Level
	count atomic.Int64
}

func (c *failureCounter) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level != zerolog.NoLevel && level >= c.level {
		c.count.Add(1)
	}
}

// Reached reports whether any counted event was logged.
func (c *failureCounter) Reached() bool { return c.count.Load() > 0 }

// displayLevel is the lowest level written to the log output.
func displayLevel(quiet, verbose bool) zerolog.Level {
	switch {
	case quiet:
		return zerolog.ErrorLevel
	case verbose:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}

// newLogger builds the diagnostics logger: human-readable on a terminal,
// JSON lines otherwise. Events below the display level are counted by the
// hook but not written.
func newLogger(w io.Writer, terminal bool, display, failure zerolog.Level) (zerolog.Logger, *failureCounter) {
	out := w
	if terminal {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	filtered := &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: out},
		Level:  display,
	}
	counter := &failureCounter{level: failure}
	logger := zerolog.New(filtered).
		Level(min(display, failure)).
		Hook(counter).
		With().Timestamp().Logger()
	return logger, counter
}
