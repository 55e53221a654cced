package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"priceoracle-service/internal/bootstrap"
	"priceoracle-service/internal/config"
	defaults "priceoracle-service/internal/infrastructure/config"
	"priceoracle-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	addr := cfg.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api, cleanup, err := bootstrap.InitAPI(ctx, cfg)
	if err != nil {
		logger.Fatal("bootstrap api", zap.Error(err))
	}
	defer cleanup()

	// The API process keeps its own cache warm.
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		api.Refresher.Start(ctx)
	}()

	server := &http.Server{
		Addr:              addr,
		Handler:           api.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), defaults.DefaultShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
	<-refreshDone
	logger.Info("server stopped")
}
