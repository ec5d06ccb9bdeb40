// ABOUTME: This file provides the slog-based structured logger for the service
// ABOUTME: JSON output with lowercase levels, service attribute, and context field extraction
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	OperationKey ContextKey = "operation"
)

const serviceName = "bias-tracker"

// New creates the root slog logger. Level accepts debug, info, warn, error;
// anything else falls back to info.
func New(level string) *slog.Logger {
	options := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					return slog.Attr{Key: "level", Value: slog.StringValue(strings.ToLower(lvl.String()))}
				}
			}

			return a
		},
	}

	handler := slog.NewJSONHandler(os.Stdout, options)

	return slog.New(handler).With("service", serviceName)
}

// WithContext returns a child logger carrying request-scoped context fields.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	var fields []any

	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		fields = append(fields, "request_id", requestID)
	}

	if operation := ctx.Value(OperationKey); operation != nil {
		fields = append(fields, "operation", operation)
	}

	if len(fields) > 0 {
		return logger.With(fields...)
	}

	return logger
}

// WithRequestID stores a request ID for later extraction by WithContext.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithOperation stores an operation name for later extraction by WithContext.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
