package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ssandworth/incomeLineUpdatex/internal/amqp"
	"github.com/ssandworth/incomeLineUpdatex/internal/config"
	apphttp "github.com/ssandworth/incomeLineUpdatex/internal/http"
	applog "github.com/ssandworth/incomeLineUpdatex/internal/log"
	"github.com/ssandworth/incomeLineUpdatex/internal/services"
	"github.com/ssandworth/incomeLineUpdatex/internal/sheets"
	gsheet "github.com/ssandworth/incomeLineUpdatex/internal/sheets/google"
	"github.com/ssandworth/incomeLineUpdatex/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

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

	// AMQP is optional: without a broker, approval events are skipped and
	// reconciliation runs inline.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange,
			cfg.AMQPApprovalQueue, cfg.AMQPReconcileQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event publishing", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	approvals := services.NewApprovalService(repo, amqpClient, cfg.AuditDepartment)
	deps := apphttp.Deps{
		Budget:      services.NewBudgetService(repo),
		Performance: services.NewPerformanceService(repo, cfg.TolerancePercent),
		Approvals:   approvals,
		Bulk:        services.NewBulkOperationCoordinator(approvals),
		Ingest:      services.NewIngestService(repo),
		Targets:     services.NewTargetService(repo),
		Access:      services.NewAccessService(repo),
		AMQP:        amqpClient,
		Logger:      logger,
		NewSource: func(ctx context.Context) (sheets.BudgetRowSource, error) {
			if cfg.GoogleSpreadsheetID == "" {
				return nil, fmt.Errorf("budget ingestion disabled: GOOGLE_SPREADSHEET_ID not set")
			}
			return gsheet.NewFromEnv(ctx)
		},
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting revenue-api server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
