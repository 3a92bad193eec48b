package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atlekbai/report_executor/internal/catalog"
	"github.com/atlekbai/report_executor/internal/middleware"
	"github.com/atlekbai/report_executor/internal/report"
)

type stubDB struct {
	rows  []map[string]any
	err   error
	calls int
	args  []any
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	s.calls++
	s.args = args
	return s.rows, s.err
}

func newRouter(db report.Querier) http.Handler {
	exec := report.NewExecutor(catalog.Default(), db)
	r := chi.NewRouter()
	r.Use(middleware.Organization)
	New(exec, zap.NewNop()).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(middleware.OrganizationHeader, "org-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const claimsByStatus = `{"dataSourceId":"claims","fields":[{"fieldId":"claim_number"},{"fieldId":"status"}],` +
	`"filters":[{"fieldId":"status","operator":"eq","value":"open"}]}`

func TestExecuteEndpoint(t *testing.T) {
	db := &stubDB{rows: []map[string]any{{"claim_number": "C-1", "status": "open"}}}
	rec := do(t, newRouter(db), http.MethodPost, "/api/reports/execute", claimsByStatus)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, true, res["success"])
	assert.Equal(t, float64(1), res["rowCount"])
	assert.NotEmpty(t, res["sql"])
	assert.NotEmpty(t, res["executionId"])
	assert.Equal(t, []any{"org-1", "open", float64(report.MaxLimit), float64(0)}, toJSON(t, db.args))
}

func TestExecuteEndpointStatuses(t *testing.T) {
	tests := []struct {
		name   string
		db     *stubDB
		body   string
		status int
		kind   string
	}{
		{
			name:   "validation",
			db:     &stubDB{},
			body:   `{"dataSourceId":"claims","fields":[{"fieldId":"id","formula":"1"}]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "database",
			db:     &stubDB{err: errors.New("Database connection failed")},
			body:   claimsByStatus,
			status: http.StatusBadGateway,
		},
		{
			name:   "malformed",
			db:     &stubDB{},
			body:   `{"dataSourceId":`,
			status: http.StatusBadRequest,
			kind:   string(report.KindInvalidRequest),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newRouter(tt.db), http.MethodPost, "/api/reports/execute", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			if tt.kind != "" {
				assert.Equal(t, tt.kind, body["code"])
			}
		})
	}
}

func TestCompileEndpoint(t *testing.T) {
	db := &stubDB{}
	rec := do(t, newRouter(db), http.MethodPost, "/api/reports/compile", claimsByStatus)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, db.calls)

	var body struct {
		SQL    string `json:"sql"`
		Params []any  `json:"params"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.SQL, `SELECT "claims"."claim_number"`))
	assert.Equal(t, []any{"org-1", "open", float64(report.MaxLimit), float64(0)}, body.Params)
}

func TestCompileEndpointWithoutTenant(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/reports/compile", strings.NewReader(claimsByStatus))
	rec := httptest.NewRecorder()
	newRouter(&stubDB{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(report.KindMissingTenant))
}

func TestExportEndpoint(t *testing.T) {
	db := &stubDB{rows: []map[string]any{{"claim_number": "C-1", "status": "open"}}}
	rec := do(t, newRouter(db), http.MethodPost, "/api/reports/export?format=csv", claimsByStatus)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="claims_`)
	assert.Equal(t, "claim_number,status\nC-1,open\n", rec.Body.String())

	rec = do(t, newRouter(db), http.MethodPost, "/api/reports/export?format=pdf", claimsByStatus)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSourcesEndpoint(t *testing.T) {
	rec := do(t, newRouter(&stubDB{}), http.MethodGet, "/api/reports/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sources []catalog.SourceInfo `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sources, 4)
	assert.Equal(t, "claim_deadlines", body.Sources[0].ID)
}

func TestExecuteEndpointLogsEncodeFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	db := &stubDB{rows: []map[string]any{{"claim_number": make(chan int)}}}

	r := chi.NewRouter()
	r.Use(middleware.Organization)
	New(report.NewExecutor(catalog.Default(), db), zap.New(core)).Routes(r)

	rec := do(t, r, http.MethodPost, "/api/reports/execute", claimsByStatus)
	assert.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("encode response failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
}

func toJSON(t *testing.T, v any) []any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var out []any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}
