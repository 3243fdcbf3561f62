package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger configures the global logger. Development gets human-readable
// console output; every other environment logs JSON lines with the caller.
// An unknown level falls back to info.
func InitLogger(serviceName, env, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	builder := zerolog.New(out).Level(lvl).With().Timestamp().Str("service", serviceName)
	if env != "development" {
		builder = builder.Caller()
	}
	log.Logger = builder.Logger()
}

// SetLogOutput redirects the global logger, keeping its fields
func SetLogOutput(w io.Writer, level zerolog.Level) {
	log.Logger = log.Logger.Output(w).Level(level)
}

// LoggerFromContext returns the global logger annotated with the active
// trace and span, if any
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.Logger
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		logger = logger.With().
			Str("trace_id", spanCtx.TraceID().String()).
			Str("span_id", spanCtx.SpanID().String()).
			Logger()
	}
	return &logger
}

// GetLogger returns the global logger
func GetLogger() *zerolog.Logger {
	return &log.Logger
}
