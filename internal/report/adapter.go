package report

import (
	"context"
	"time"
)

// Querier runs a parameterized query and returns its rows keyed by column
// name. Implementations own parameter binding and connections.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, sql string, args ...any) ([]map[string]any, error)

func (f QuerierFunc) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	return f(ctx, sql, args...)
}

// Adapter makes the single database call of an execution.
type Adapter struct {
	db Querier
}

func NewAdapter(db Querier) *Adapter {
	return &Adapter{db: db}
}

// Execute calls the querier exactly once and reports how long the call took.
// Failures are returned as *DatabaseExecutionError.
func (a *Adapter) Execute(ctx context.Context, sql string, params []any) ([]map[string]any, time.Duration, error) {
	start := time.Now()
	rows, err := a.db.Query(ctx, sql, params...)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, newDatabaseError(err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, elapsed, nil
}
