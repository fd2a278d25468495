// Package logging builds the structured loggers shared by every component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Options controls logger construction
type Options struct {
	Level  string
	Format string // text, json or logfmt
	Caller bool
}

// New creates a [log.Logger] writing to w (default [os.Stderr]) with timestamps enabled
func New(w io.Writer, opts Options) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    opts.Caller,
		Formatter:       formatter(opts.Format),
	})
	logger.SetLevel(ParseLevel(opts.Level))
	return logger
}

// Component returns a child logger tagged with the component name
func Component(l *log.Logger, name string) *log.Logger {
	return l.With("component", name)
}

// Discard returns a logger that drops everything, for tests
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// ParseLevel maps a level name to a [log.Level], defaulting to info
func ParseLevel(raw string) log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func formatter(raw string) log.Formatter {
	switch strings.ToLower(raw) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
