// cmd/historian/main.go is an asynchronous historian service that pops action records from a
// Redis queue and persists them to a PostgreSQL database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Errorf("historian exited: %v", err)
		os.Exit(1)
	}
	logger.Info("historian shutdown complete")
}

// run connects to Redis and PostgreSQL and drains the queue until ctx is cancelled.
// Both connections are closed before it returns.
func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		return errors.New("historian requires REDIS_ADDR and DATABASE_URL")
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	sink, err := historian.NewPostgresSink(ctx, pool)
	if err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}

	svc := historian.NewService(
		historian.NewRedisSource(rdb, cfg.QueueName, logger),
		sink,
		historian.Options{
			BatchSize:     cfg.HistorianBatchSize,
			FlushInterval: cfg.FlushInterval(),
			Inactivity:    cfg.InactivityTimeout(),
		},
		logger,
	)
	return svc.Run(ctx)
}
