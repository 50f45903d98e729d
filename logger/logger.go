// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a console logger writing to w at the given level. An unknown
// or empty level falls back to info.
func New(w io.Writer, level string, noColor bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Setup installs a stderr logger as the global log.Logger.
func Setup(level string, noColor bool) {
	log.Logger = New(os.Stderr, level, noColor)
}
