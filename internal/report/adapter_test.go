package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterWrapsDriverErrors(t *testing.T) {
	driverErr := errors.New("connection refused")
	a := NewAdapter(QuerierFunc(func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
		return nil, driverErr
	}))

	rows, elapsed, err := a.Execute(context.Background(), "SELECT 1", nil)
	assert.Nil(t, rows)
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))

	var de *DatabaseExecutionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "connection refused", de.Message)
	assert.ErrorIs(t, err, driverErr)
}

func TestAdapterEmptyDriverMessage(t *testing.T) {
	a := NewAdapter(QuerierFunc(func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
		return nil, errors.New("")
	}))
	_, _, err := a.Execute(context.Background(), "SELECT 1", nil)
	assert.EqualError(t, err, "Report execution failed")
}

func TestAdapterPassesContextAndParams(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	a := NewAdapter(QuerierFunc(func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
		assert.Equal(t, "v", ctx.Value(key{}))
		assert.Equal(t, "SELECT ? + ?", sql)
		assert.Equal(t, []any{1, 2}, args)
		return nil, nil
	}))
	rows, _, err := a.Execute(ctx, "SELECT ? + ?", []any{1, 2})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`{
		"dataSourceId": "claims",
		"fields": [{"fieldId": "id"}, {"fieldId": "amount", "aggregation": "sum", "alias": "total"}],
		"filters": [{"fieldId": "amount", "operator": "between", "values": [1, 2.5]}],
		"sortBy": [{"fieldId": "id", "direction": "desc", "nulls": "first"}],
		"offset": 20
	}`))
	require.NoError(t, err)

	assert.Equal(t, "claims", cfg.DataSourceID)
	require.Len(t, cfg.Fields, 2)
	assert.Equal(t, "total", cfg.Fields[1].Alias)
	assert.Len(t, cfg.Filters[0].Values, 2)
	assert.Nil(t, cfg.Limit)
	require.NotNil(t, cfg.Offset)
	assert.Equal(t, 20, *cfg.Offset)

	_, err = ParseConfig(strings.NewReader(`{"dataSourceId": "claims", "rawSql": "SELECT 1"}`))
	assert.Equal(t, KindInvalidRequest, KindOf(err))

	_, err = ParseConfig(strings.NewReader(`not json`))
	assert.Equal(t, KindInvalidRequest, KindOf(err))
}
