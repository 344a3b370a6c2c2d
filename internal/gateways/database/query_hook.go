package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/huddle-bot/huddle/huddle/logger"
	"github.com/huddle-bot/huddle/internal/metrics"
	"github.com/uptrace/bun"
)

const maxLoggedQuery = 500

// QueryHook logs every bun query and records its latency. A missing row is
// not a failure.
type QueryHook struct{}

var _ bun.QueryHook = QueryHook{}

func (QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	took := time.Since(event.StartTime)

	err := event.Err
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.QueryDuration.WithLabelValues(event.Operation(), status).Observe(took.Seconds())

	query := event.Query
	if len(query) > maxLoggedQuery {
		query = query[:maxLoggedQuery] + "..."
	}
	logger.LogQuery(query, took, err)
}
