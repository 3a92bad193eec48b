package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// OrganizationHeader carries the tenant of the caller. It is set by the
// gateway after authentication and trusted here.
const OrganizationHeader = "X-Organization-ID"

type ctxKey int

const organizationKey ctxKey = iota

// ContentType sets the Content-Type header to application/json.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Organization stores the caller's organization id in the request context.
func Organization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if org := r.Header.Get(OrganizationHeader); org != "" {
			r = r.WithContext(WithOrganization(r.Context(), org))
		}
		next.ServeHTTP(w, r)
	})
}

func WithOrganization(ctx context.Context, org string) context.Context {
	return context.WithValue(ctx, organizationKey, org)
}

// OrganizationFrom returns the organization id stored by Organization.
func OrganizationFrom(ctx context.Context) string {
	org, _ := ctx.Value(organizationKey).(string)
	return org
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging logs each request with method, path, status and duration.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("organization_id", r.Header.Get(OrganizationHeader)),
			)
		})
	}
}

// Recovery catches panics and returns a 500 error.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic", zap.Any("error", err), zap.String("path", r.URL.Path))
					http.Error(w, `{"error":"Internal server error","code":"INTERNAL_ERROR"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
