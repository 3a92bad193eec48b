package server

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atlekbai/report_executor/internal/middleware"
)

// ConnectService is implemented by each service to register its connect handler.
type ConnectService interface {
	RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler)
}

// RouteRegistrar mounts plain HTTP routes.
type RouteRegistrar interface {
	Routes(r chi.Router)
}

// NewRouter builds the HTTP router serving both the REST routes and the
// Connect services.
func NewRouter(logger *zap.Logger, rest RouteRegistrar, services []ConnectService, interceptors ...connect.Interceptor) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Organization)

	r.With(middleware.ContentType).Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	rest.Routes(r)

	for _, svc := range services {
		path, handler := svc.RegisterHandler(interceptors...)
		r.Mount(path, handler)
	}
	return r
}

func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
