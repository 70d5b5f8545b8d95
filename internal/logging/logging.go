// Package logging builds the service logger and writes one log line per
// event published on the event bus.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	eventbus "github.com/hanpama/feedgraph/internal/eventbus"
	events "github.com/hanpama/feedgraph/internal/events"
	reqid "github.com/hanpama/feedgraph/internal/reqid"
)

// New returns a production JSON logger, or a console logger when
// development is set. level is a zap level name such as "info" or "debug".
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// Subscribe attaches log handlers to the global bus. The returned function
// detaches them.
func Subscribe(logger *zap.Logger) (unsubscribe func()) {
	withRID := func(ctx context.Context) *zap.Logger {
		if rid, ok := reqid.FromContext(ctx); ok {
			return logger.With(zap.String("requestID", rid))
		}
		return logger
	}

	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			withRID(ctx).Info("HTTP request",
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Int("batch", e.Batch),
				zap.Int("bytes", e.Bytes),
				zap.Duration("duration", e.Duration),
				zap.String("remoteAddr", e.Request.RemoteAddr),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			fields := []zap.Field{
				zap.String("operationName", e.OperationName),
				zap.String("operationType", e.OperationType),
				zap.Int("errors", len(e.Errors)),
				zap.Duration("duration", e.Duration),
			}
			l := withRID(ctx)
			switch {
			case e.Validation:
				l.Info("GraphQL request rejected", append(fields, zap.Errors("validation", e.Errors))...)
			case len(e.Errors) > 0:
				l.Warn("GraphQL operation", append(fields, zap.Errors("fieldErrors", e.Errors))...)
			default:
				l.Debug("GraphQL operation", fields...)
			}
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.CatalogCallFinish) {
			fields := []zap.Field{
				zap.Uint64("callID", e.CallID),
				zap.String("operation", e.Operation),
				zap.String("url", e.URL),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration),
			}
			if e.Err != nil {
				withRID(ctx).Warn("Catalog call failed", append(fields, zap.Error(e.Err))...)
				return
			}
			withRID(ctx).Debug("Catalog call", fields...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.CatalogBreakerStateChange) {
			logger.Warn("Catalog circuit breaker state changed",
				zap.String("name", e.Name),
				zap.String("from", e.From),
				zap.String("to", e.To),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.MessagePosted) {
			withRID(ctx).Info("Message posted", zap.String("id", e.ID), zap.String("userID", e.UserID))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.MessageDeleted) {
			withRID(ctx).Info("Message deleted", zap.String("id", e.ID))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
