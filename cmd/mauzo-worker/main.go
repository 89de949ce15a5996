// Command mauzo-worker consumes analyze requests from AMQP and re-runs the
// pipeline on a fixed schedule.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mauzo/internal/amqp"
	"mauzo/internal/backend"
	"mauzo/internal/config"
	"mauzo/internal/log"
	"mauzo/internal/report"
	"mauzo/internal/services"
	"mauzo/internal/storage"
	"mauzo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logCfg := log.DefaultConfig()
	logCfg.Component = log.ComponentWorker
	logger := log.New(logCfg)
	log.SetDefault(logger)

	logger.Info("Starting mauzo-worker")

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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	service := services.NewAnalysisService(repo, amqpClient)
	factory := backend.NewFactory(logger.Logger)
	reports := report.NewWriter(cfg.ReportDir, report.Options{
		RecencyWindowDays: cfg.RecencyWindowDays,
	})
	fallback := backend.Config{
		Type:  backend.Type(cfg.SourceType),
		Path:  cfg.SourcePath,
		Sheet: cfg.SourceSheet,
	}

	analysisWorker := worker.NewAnalysisWorker(service, factory, reports, fallback, cfg.AnalyzeInterval)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		handler := func(msg *amqp.AnalyzeRequestMessage) error {
			return analysisWorker.HandleAnalyzeRequest(ctx, msg)
		}
		if err := amqpClient.ConsumeAnalyzeRequests(ctx, handler); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	go func() {
		if err := analysisWorker.RunPeriodic(ctx); err != nil && err != context.Canceled {
			logger.Error("Periodic analysis stopped", "error", err)
			cancel()
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	// Give the worker time to finish the in-flight run
	logger.Info("Shutting down worker...")
	cancel()
	time.Sleep(5 * time.Second)
	logger.Info("Worker shutdown complete")
}
