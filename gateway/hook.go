package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// QueryLogHook logs every executed statement at debug level and failed
// statements at warn level.
type QueryLogHook struct {
	logger *slog.Logger
}

var _ bun.QueryHook = (*QueryLogHook)(nil)

// NewQueryLogHook returns a hook writing to logger. Install it with db.AddQueryHook.
func NewQueryLogHook(logger *slog.Logger) *QueryLogHook {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &QueryLogHook{logger: logger}
}

// BeforeQuery implements bun.QueryHook.
func (h *QueryLogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook.
func (h *QueryLogHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	attrs := []any{
		slog.String("operation", event.Operation()),
		slog.String("query", event.Query),
		slog.Duration("elapsed", time.Since(event.StartTime)),
	}
	if event.Err != nil && !isNoRows(event.Err) {
		h.logger.WarnContext(ctx, "query failed", append(attrs, slog.Any("error", event.Err))...)
		return
	}
	h.logger.DebugContext(ctx, "query", attrs...)
}
