package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/kinder-market/internal/config"
	"github.com/iliyamo/kinder-market/internal/logging"
	"github.com/iliyamo/kinder-market/internal/queue"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.LoadNotifier()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Log, cfg.Dev())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := logging.Rotating(cfg.EventLog)
	defer out.Close()

	logger.Info("consuming lifecycle events", zap.String("queue", queue.EventsQueue), zap.String("log", cfg.EventLog))
	err = queue.NewConsumer(cfg.RabbitURL, out, logger).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
