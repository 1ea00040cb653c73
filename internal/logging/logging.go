// Package logging builds the zerolog logger shared by the CLI and converters
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w. format "json" writes JSON lines,
// anything else a plain console format. Debug enables debug level,
// verbose info level; otherwise only warnings and errors are written.
func New(w io.Writer, format string, verbose, debug bool) zerolog.Logger {
	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339Nano, NoColor: true}
	}
	return zerolog.New(out).Level(Level(verbose, debug)).With().Timestamp().Logger()
}

// Level maps the verbosity flags onto a zerolog level
func Level(verbose, debug bool) zerolog.Level {
	switch {
	case debug:
		return zerolog.DebugLevel
	case verbose:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}
