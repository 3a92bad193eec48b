package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"buf.build/go/protovalidate"
	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/report_executor/internal/catalog"
	"github.com/atlekbai/report_executor/internal/middleware"
	"github.com/atlekbai/report_executor/internal/report"
	"github.com/atlekbai/report_executor/internal/server"
)

func newTestServer(t *testing.T, db report.QuerierFunc) string {
	t.Helper()

	validator, err := protovalidate.New()
	require.NoError(t, err)

	svc := NewReportService(report.NewExecutor(catalog.Default(), db))
	path, h := svc.RegisterHandler(server.ValidationInterceptor(validator, ReportEnvelope))

	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func call(t *testing.T, url, procedure string, msg map[string]any) (*connect.Response[structpb.Struct], error) {
	t.Helper()
	return callAs(t, "org-1", url, procedure, msg)
}

func callAs(t *testing.T, org, url, procedure string, msg map[string]any) (*connect.Response[structpb.Struct], error) {
	t.Helper()
	in, err := structpb.NewStruct(msg)
	require.NoError(t, err)

	client := connect.NewClient[structpb.Struct, structpb.Struct](http.DefaultClient, url+procedure)
	req := connect.NewRequest(in)
	if org != "" {
		req.Header().Set(middleware.OrganizationHeader, org)
	}
	return client.CallUnary(context.Background(), req)
}

var openClaims = map[string]any{
	"dataSourceId": "claims",
	"fields":       []any{map[string]any{"fieldId": "claim_number"}},
	"filters":      []any{map[string]any{"fieldId": "status", "operator": "eq", "value": "open"}},
}

func TestExecuteRPC(t *testing.T) {
	var gotArgs []any
	url := newTestServer(t, func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
		gotArgs = args
		return []map[string]any{{"claim_number": "C-1"}, {"claim_number": "C-2"}}, nil
	})

	resp, err := call(t, url, ExecuteProcedure, openClaims)
	require.NoError(t, err)

	out := resp.Msg.AsMap()
	assert.Equal(t, true, out["success"])
	assert.Equal(t, float64(2), out["rowCount"])
	assert.Len(t, out["data"], 2)
	assert.NotEmpty(t, resp.Header().Get("X-Execution-ID"))
	assert.Equal(t, "org-1", gotArgs[0])
}

func TestExecuteRPCErrors(t *testing.T) {
	url := newTestServer(t, func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
		return nil, errors.New("Database connection failed")
	})

	_, err := call(t, url, ExecuteProcedure, map[string]any{"dataSourceId": "invalid_source", "fields": []any{}})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = call(t, url, ExecuteProcedure, map[string]any{"dataSourceId": "claims", "unknown": true})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = call(t, url, ExecuteProcedure, openClaims)
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))

	var cerr *connect.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Database connection failed", cerr.Message())
}

func TestCompileRPC(t *testing.T) {
	calls := 0
	url := newTestServer(t, func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
		calls++
		return nil, nil
	})

	resp, err := call(t, url, CompileProcedure, openClaims)
	require.NoError(t, err)
	out := resp.Msg.AsMap()
	assert.Contains(t, out["sql"], `FROM "claims"`)
	assert.Equal(t, []any{"org-1", "open", float64(report.MaxLimit), float64(0)}, out["params"])
	assert.Zero(t, calls)
}

func TestListSourcesRPC(t *testing.T) {
	url := newTestServer(t, nil)

	resp, err := call(t, url, ListSourcesProcedure, map[string]any{})
	require.NoError(t, err)
	sources, ok := resp.Msg.AsMap()["sources"].([]any)
	require.True(t, ok)
	assert.Len(t, sources, 4)
}

func TestReportEnvelopeValidation(t *testing.T) {
	calls := 0
	url := newTestServer(t, func(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
		calls++
		return nil, nil
	})

	tests := []struct {
		name      string
		org       string
		procedure string
		msg       map[string]any
		field     string
	}{
		{
			name:      "organization with SQL",
			org:       "org-1' OR '1'='1",
			procedure: ExecuteProcedure,
			msg:       openClaims,
			field:     "organization_id",
		},
		{
			name:      "qualified data source",
			org:       "org-1",
			procedure: CompileProcedure,
			msg:       map[string]any{"dataSourceId": "pg_catalog.pg_user", "fields": []any{}},
			field:     "data_source_id",
		},
		{
			name:      "empty data source",
			org:       "org-1",
			procedure: ExecuteProcedure,
			msg:       map[string]any{"dataSourceId": "", "fields": []any{}},
			field:     "data_source_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callAs(t, tt.org, url, tt.procedure, tt.msg)
			require.Error(t, err)
			assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
	assert.Zero(t, calls)

	// Without an organization the envelope passes and the executor decides.
	_, err := callAs(t, "", url, ExecuteProcedure, openClaims)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	// ListSources carries no config and is not wrapped.
	_, err = callAs(t, "org 1", url, ListSourcesProcedure, map[string]any{})
	assert.NoError(t, err)
}
