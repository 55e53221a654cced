package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"priceoracle-service/internal/bootstrap"
	"priceoracle-service/internal/config"
	"priceoracle-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	log := logx.L()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, cleanup, err := bootstrap.InitWorkerApp(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatal("init worker", zap.Error(err))
	}
	defer cleanup()
	if err := run(ctx); err != nil {
		log.Fatal("worker exited", zap.Error(err))
	}
}
