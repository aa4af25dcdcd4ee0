package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// QueryLogger is a bun query hook that logs every statement as it was
// submitted to the store, bound values included.
type QueryLogger struct {
	logger *zap.Logger
}

var _ bun.QueryHook = (*QueryLogger)(nil)

// NewQueryLogger returns a hook writing to logger.
func NewQueryLogger(logger *zap.Logger) *QueryLogger {
	return &QueryLogger{logger: logger.Named("sql")}
}

func (h *QueryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	fields := []zap.Field{
		zap.String("query", event.Query),
		zap.Duration("took", time.Since(event.StartTime)),
	}

	switch {
	case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows):
		h.logger.Debug("query", fields...)
	default:
		h.logger.Warn("query failed", append(fields, zap.Error(event.Err))...)
	}
}
