package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atlekbai/report_executor/internal/export"
	"github.com/atlekbai/report_executor/internal/middleware"
	"github.com/atlekbai/report_executor/internal/report"
)

// maxBodyBytes bounds a report config request body.
const maxBodyBytes = 1 << 20

type Handler struct {
	exec   *report.Executor
	logger *zap.Logger
}

func New(exec *report.Executor, logger *zap.Logger) *Handler {
	return &Handler{exec: exec, logger: logger}
}

// Routes mounts the report API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/sources", h.Sources)
		r.Post("/execute", h.Execute)
		r.Post("/compile", h.Compile)
		r.Post("/export", h.Export)
	})
}

func (h *Handler) executor(r *http.Request) *report.Executor {
	return h.exec.ForTenant(middleware.OrganizationFrom(r.Context()))
}

func (h *Handler) parseConfig(w http.ResponseWriter, r *http.Request) (*report.ReportConfig, bool) {
	cfg, err := report.ParseConfig(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, string(report.KindInvalidRequest), err.Error(), "")
		return nil, false
	}
	return cfg, true
}

// Sources handles GET /api/reports/sources
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"sources": h.exec.Catalog().Describe()})
}

// Execute handles POST /api/reports/execute
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.parseConfig(w, r)
	if !ok {
		return
	}
	res := h.executor(r).Execute(r.Context(), cfg)
	h.writeJSON(w, statusFor(res), res)
}

// Compile handles POST /api/reports/compile
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.parseConfig(w, r)
	if !ok {
		return
	}
	sql, params, err := h.executor(r).Compile(cfg)
	if err != nil {
		kind := report.KindOf(err)
		h.writeError(w, statusFor(&report.Result{Kind: kind}), string(kind), err.Error(), "")
		return
	}
	if params == nil {
		params = []any{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sql": sql, "params": params})
}

// Export handles POST /api/reports/export?format=csv|xlsx
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), "")
		return
	}
	cfg, ok := h.parseConfig(w, r)
	if !ok {
		return
	}

	res := h.executor(r).Execute(r.Context(), cfg)
	if !res.Success {
		h.writeJSON(w, statusFor(res), res)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, res.Columns, res.Data); err != nil {
		h.logger.Error("export failed", zap.String("execution_id", res.ExecutionID), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to render export", "")
		return
	}

	name := format.Filename(fmt.Sprintf("%s_%s", cfg.DataSourceID, time.Now().UTC().Format("20060102_150405")))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Execution-ID", res.ExecutionID)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func statusFor(res *report.Result) int {
	switch {
	case res.Success:
		return http.StatusOK
	case res.Kind == report.KindDatabaseExecution:
		return http.StatusBadGateway
	case res.Kind == report.KindCompile:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
