package sdk

import (
	"context"

	"go.uber.org/zap"
)

// Logger is the minimal logging surface the engine writes progress and
// warnings to. The zap sugared logger satisfies it directly.
type Logger interface {
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
}

type contextLoggerValueT string

const contextLoggerValue = contextLoggerValueT("batcher-logger")

// WithLogger returns a context carrying the given logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextLoggerValue, logger)
}

// LoggerFrom extracts the logger from the context, falling back to a zap
// production logger when none was attached.
func LoggerFrom(ctx context.Context) Logger {
	logger, ok := ctx.Value(contextLoggerValue).(Logger)
	if !ok {
		logger = zap.Must(zap.NewProduction()).Sugar()
	}

	return logger
}
