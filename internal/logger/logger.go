package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog.Logger for the service. Development environments get a
// human readable console writer, everything else logs JSON to stdout.
func New(serviceName, environment, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if environment == "" || environment == "development" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	return NewWithWriter(out, serviceName, environment, level)
}

// NewWithWriter is New with an explicit sink, used by the CLI and tests.
func NewWithWriter(out io.Writer, serviceName, environment, level string) zerolog.Logger {
	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("environment", environment).
		Logger().
		Level(parseLevel(level))
}

// FromContext returns the request scoped logger stored by the HTTP middleware,
// or the fallback when none is present.
func FromContext(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return fallback
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
