package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// newLogger writes to stdout, for a human unless LOG_FORMAT=json. The level
// comes from LOG_LEVEL and defaults to info.
func newLogger() zerolog.Logger {
	return buildLogger(os.Stdout, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"), os.Getenv("NO_COLOR") != "")
}

func buildLogger(out io.Writer, format string, envLevel string, noColor bool) zerolog.Logger {
	if format != "json" {
		consoleWriter := zerolog.ConsoleWriter{Out: out, NoColor: noColor}
		consoleWriter.TimeFormat = "[" + time.RFC3339 + "]"
		consoleWriter.PartsOrder = []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		}
		out = consoleWriter
	}

	logger := zerolog.New(out).
		With().Timestamp().Logger()

	if envLevel == "" {
		return logger.Level(zerolog.InfoLevel)
	}
	level, err := zerolog.ParseLevel(envLevel)
	if err != nil {
		logger.Warn().Err(err).Msg("could not parse environment variable LOG_LEVEL")
		return logger.Level(zerolog.InfoLevel)
	}
	return logger.Level(level)
}
