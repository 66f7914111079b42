package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ssandworth/incomeLineUpdatex/internal/amqp"
	"github.com/ssandworth/incomeLineUpdatex/internal/config"
	applog "github.com/ssandworth/incomeLineUpdatex/internal/log"
	"github.com/ssandworth/incomeLineUpdatex/internal/services"
	"github.com/ssandworth/incomeLineUpdatex/internal/storage"
	"github.com/ssandworth/incomeLineUpdatex/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting revenue-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange,
		cfg.AMQPApprovalQueue, cfg.AMQPReconcileQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	performance := services.NewPerformanceService(repo, cfg.TolerancePercent)
	reconcileWorker := worker.NewReconcileWorker(performance, cfg.ReconcileInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeReconcileRequests(ctx, func(msg *amqp.ReconcileRequestMessage) error {
			return reconcileWorker.HandleReconcileRequest(ctx, msg)
		})
	})

	g.Go(func() error {
		return reconcileWorker.RunPeriodic(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
