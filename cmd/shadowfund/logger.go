// logger.go - Structured logging for the shadowfund CLI
package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds a leveled zerolog logger. Development output is rendered
// for humans; everything else is JSON.
func NewLogger(out io.Writer, level, appEnv string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return logger, nil
}
