package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"buf.build/go/protovalidate"
	"connectrpc.com/connect"
	"go.uber.org/zap"

	"github.com/atlekbai/report_executor/internal/catalog"
	"github.com/atlekbai/report_executor/internal/config"
	"github.com/atlekbai/report_executor/internal/db"
	"github.com/atlekbai/report_executor/internal/handler"
	"github.com/atlekbai/report_executor/internal/logger"
	"github.com/atlekbai/report_executor/internal/report"
	"github.com/atlekbai/report_executor/internal/server"
	"github.com/atlekbai/report_executor/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zl.Sync()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			zl.Fatal("failed to load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.VerifyCatalog {
		if err := cat.Verify(ctx, pool); err != nil {
			zl.Fatal("catalog does not match database", zap.Error(err))
		}
	}
	zl.Info("catalog loaded", zap.Int("count", cat.SourceCount()), zap.Strings("data_sources", cat.IDs()))

	exec := report.NewExecutor(cat, db.NewPoolQuerier(pool),
		report.WithLogger(zl),
		report.WithMaxLimit(cfg.MaxLimit),
		report.WithTimeout(cfg.QueryTimeout),
	)

	validator, err := protovalidate.New()
	if err != nil {
		zl.Fatal("failed to create validator", zap.Error(err))
	}

	interceptors := []connect.Interceptor{
		server.ValidationInterceptor(validator, service.ReportEnvelope),
	}

	services := []server.ConnectService{
		service.NewReportService(exec),
	}

	router := server.NewRouter(zl, handler.New(exec, zl), services, interceptors...)
	srv := server.New(cfg.Addr(), router)

	go func() {
		<-ctx.Done()
		zl.Info("shutting down")
		srv.Shutdown(context.Background())
	}()

	zl.Info("listening", zap.String("addr", cfg.Addr()))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("server error", zap.Error(err))
	}
}
