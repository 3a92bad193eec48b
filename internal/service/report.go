package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/report_executor/internal/middleware"
	"github.com/atlekbai/report_executor/internal/report"
)

const (
	ReportServiceName = "reports.v1.ReportService"

	ExecuteProcedure     = "/" + ReportServiceName + "/Execute"
	CompileProcedure     = "/" + ReportServiceName + "/Compile"
	ListSourcesProcedure = "/" + ReportServiceName + "/ListSources"
)

// ReportService exposes report execution over Connect. Requests and responses
// are google.protobuf.Struct messages holding the same JSON documents the
// REST API uses.
type ReportService struct {
	exec *report.Executor
}

func NewReportService(exec *report.Executor) *ReportService {
	return &ReportService{exec: exec}
}

func (s *ReportService) RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler) {
	opts := connect.WithInterceptors(interceptors...)
	mux := http.NewServeMux()
	mux.Handle(ExecuteProcedure, connect.NewUnaryHandler(ExecuteProcedure, s.Execute, opts))
	mux.Handle(CompileProcedure, connect.NewUnaryHandler(CompileProcedure, s.Compile, opts))
	mux.Handle(ListSourcesProcedure, connect.NewUnaryHandler(ListSourcesProcedure, s.ListSources, opts))
	return "/" + ReportServiceName + "/", mux
}

func (s *ReportService) executor(req connect.AnyRequest) *report.Executor {
	return s.exec.ForTenant(req.Header().Get(middleware.OrganizationHeader))
}

func (s *ReportService) Execute(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	cfg, err := configFromStruct(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	res := s.executor(req).Execute(ctx, cfg)
	if !res.Success {
		cerr := connect.NewError(codeFor(res.Kind), errors.New(res.Error))
		cerr.Meta().Set("X-Execution-ID", res.ExecutionID)
		return nil, cerr
	}

	out, err := toStruct(res)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("encode result: %w", err))
	}
	resp := connect.NewResponse(out)
	resp.Header().Set("X-Execution-ID", res.ExecutionID)
	return resp, nil
}

func (s *ReportService) Compile(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	cfg, err := configFromStruct(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	sql, params, err := s.executor(req).Compile(cfg)
	if err != nil {
		return nil, connect.NewError(codeFor(report.KindOf(err)), err)
	}
	if params == nil {
		params = []any{}
	}

	out, err := toStruct(map[string]any{"sql": sql, "params": params})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("encode result: %w", err))
	}
	return connect.NewResponse(out), nil
}

func (s *ReportService) ListSources(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	out, err := toStruct(map[string]any{"sources": s.exec.Catalog().Describe()})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("encode sources: %w", err))
	}
	return connect.NewResponse(out), nil
}

func configFromStruct(msg *structpb.Struct) (*report.ReportConfig, error) {
	b, err := protojson.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return report.ParseConfig(bytes.NewReader(b))
}

// toStruct converts v to a Struct through its JSON form, so driver values
// such as timestamps arrive in the same shape the REST API returns.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

func codeFor(kind report.ErrorKind) connect.Code {
	switch kind {
	case report.KindDatabaseExecution:
		return connect.CodeUnavailable
	case report.KindCompile, "":
		return connect.CodeInternal
	case report.KindMissingTenant:
		return connect.CodeFailedPrecondition
	default:
		return connect.CodeInvalidArgument
	}
}
