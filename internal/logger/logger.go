// Package logger builds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a console logger at the named level ("debug", "info", "warn",
// "error", "none"). verbose forces debug regardless of the configured level.
func New(level string, verbose bool) zerolog.Logger {
	return NewWriter(os.Stderr, level, verbose)
}

// NewWriter is New with an explicit sink, for tests.
func NewWriter(w io.Writer, level string, verbose bool) zerolog.Logger {
	lvl := parseLevel(level)
	if verbose {
		lvl = zerolog.DebugLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
