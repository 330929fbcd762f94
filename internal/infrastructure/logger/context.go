package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// WithContext attaches a logger to the context. Downstream code (the GORM
// logger, the audit writer) retrieves it with FromContext.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to the context, or a no-op logger
// when none is attached.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in the context. When a logger is
// already attached it is replaced with one carrying the request_id field, so
// every entry logged under this context correlates with the access log.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		ctx = WithContext(ctx, logger.With(zap.String("request_id", requestID)))
	}
	return ctx
}

// WithUserID stores the authenticated clerk's ID in the context and enriches
// the attached logger the same way WithRequestID does.
func WithUserID(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		ctx = WithContext(ctx, logger.With(zap.String("user_id", userID)))
	}
	return ctx
}

// GetRequestID returns the request ID stored in the context, if any.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID returns the user ID stored in the context, if any.
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}
