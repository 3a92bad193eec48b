package report

import (
	"fmt"
	"time"
)

// Result is the envelope returned for every execution, successful or not.
type Result struct {
	Success         bool             `json:"success"`
	Data            []map[string]any `json:"data"`
	Columns         []string         `json:"columns,omitempty"`
	RowCount        int              `json:"rowCount"`
	ExecutionTimeMs int64            `json:"executionTimeMs"`
	SQL             string           `json:"sql,omitempty"`
	Error           string           `json:"error,omitempty"`
	ExecutionID     string           `json:"executionId,omitempty"`

	// Kind classifies Error. It is not serialized.
	Kind ErrorKind `json:"-"`
}

func succeeded(id, sql string, columns []string, rows []map[string]any, elapsed time.Duration) *Result {
	return &Result{
		Success:         true,
		Data:            rows,
		Columns:         columns,
		RowCount:        len(rows),
		ExecutionTimeMs: elapsed.Milliseconds(),
		SQL:             sql,
		ExecutionID:     id,
	}
}

func failed(id string, err error, elapsed time.Duration) *Result {
	if elapsed < 0 {
		elapsed = 0
	}
	return &Result{
		Error:           err.Error(),
		Kind:            KindOf(err),
		ExecutionTimeMs: elapsed.Milliseconds(),
		ExecutionID:     id,
	}
}

func (r *Result) String() string {
	if r.Success {
		return fmt.Sprintf("ok rows=%d time=%dms", r.RowCount, r.ExecutionTimeMs)
	}
	return fmt.Sprintf("failed kind=%s error=%q time=%dms", r.Kind, r.Error, r.ExecutionTimeMs)
}
