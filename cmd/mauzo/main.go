// Command mauzo runs the analysis pipeline once against the configured
// source and writes the strategic-insight reports.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mauzo/internal/amqp"
	"mauzo/internal/backend"
	"mauzo/internal/config"
	"mauzo/internal/log"
	"mauzo/internal/report"
	"mauzo/internal/services"
	"mauzo/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	sourceType := flag.String("source", "", "source type override (csv, excel, sheets, memory)")
	sourcePath := flag.String("path", "", "source path override for csv and excel")
	noStore := flag.Bool("no-store", false, "skip persisting the run to SQLite")
	enqueue := flag.Bool("enqueue", false, "publish an analyze request instead of running locally")
	flag.Parse()

	cfg := config.Load()
	if *sourceType != "" {
		cfg.SourceType = *sourceType
	}
	if *sourcePath != "" {
		cfg.SourcePath = *sourcePath
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *enqueue {
		if err := enqueueRequest(ctx, cfg); err != nil {
			logger.Error("Failed to enqueue analyze request", "error", err)
			os.Exit(1)
		}
		logger.Info("Analyze request enqueued",
			"source_type", cfg.SourceType,
			"source_path", cfg.SourcePath)
		return
	}

	if err := runLocal(ctx, cfg, logger, *noStore); err != nil {
		logger.Error("Analysis failed", "error", err)
		os.Exit(1)
	}
}

func enqueueRequest(ctx context.Context, cfg *config.Config) error {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	msg := amqp.NewAnalyzeRequestMessage(cfg.SourceType, cfg.SourcePath)
	return client.PublishAnalyzeRequest(ctx, msg)
}

func runLocal(ctx context.Context, cfg *config.Config, logger *log.Logger, noStore bool) error {
	var repo *storage.SQLiteRepository
	if !noStore {
		var err error
		repo, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		defer repo.Close()
		logger.Info("SQLite repository initialized", "path", cfg.SQLiteDBPath)
	}

	// Batch runs don't announce completion, only the worker does.
	service := services.NewAnalysisService(repo, nil)

	factory := backend.NewFactory(logger.Logger)
	src, err := factory.CreateSource(ctx, backend.Config{
		Type:  backend.Type(cfg.SourceType),
		Path:  cfg.SourcePath,
		Sheet: cfg.SourceSheet,
	})
	if err != nil {
		return err
	}

	result, err := service.Run(ctx, src, cfg.SourceType)
	if err != nil {
		return err
	}

	writer := report.NewWriter(cfg.ReportDir, report.Options{
		RecencyWindowDays: cfg.RecencyWindowDays,
	})
	paths, err := writer.WriteAll(ctx, result)
	if err != nil {
		return err
	}

	logger.Info("Analysis complete",
		"rows", len(result.Cleaned),
		"discarded", result.Discards.Total(),
		"findings", len(result.Findings),
		"reports", len(paths))
	return nil
}
