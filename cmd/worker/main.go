package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/adapters/event"
	"github.com/khoahotran/portfolio-cms/adapters/persistence"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/portfolio"
	"github.com/khoahotran/portfolio-cms/internal/config"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Starting Portfolio CMS Worker...")

	// Snapshot cache
	redisClient, err := persistence.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Redis", err)
	}
	defer redisClient.Close()

	invalidator := portfolio.NewInvalidator(persistence.NewRedisSnapshotCache(redisClient), appLogger)

	// Kafka Consumer
	contentConsumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicContentEvents,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer contentConsumer.Close()

	appLogger.Info("Worker listening", zap.String("topic", event.TopicContentEvents))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := event.NewContentConsumer(contentConsumer, invalidator.HandleContentEvent, appLogger)
	if err := consumer.Run(ctx); err != nil {
		appLogger.Error("Kafka reader closed", err)
	}
	appLogger.Info("Worker stopped")
}
