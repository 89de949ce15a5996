// Package worker drives the pipeline from AMQP requests and a periodic
// schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mauzo/internal/amqp"
	"mauzo/internal/backend"
	"mauzo/internal/log"
	"mauzo/internal/report"
	"mauzo/internal/services"
)

// AnalysisWorker runs the pipeline whenever an analyze request arrives and
// on a fixed interval as a backstop for lost messages.
type AnalysisWorker struct {
	service  *services.AnalysisService
	factory  *backend.Factory
	reports  *report.Writer
	fallback backend.Config
	interval time.Duration
}

func NewAnalysisWorker(service *services.AnalysisService, factory *backend.Factory, reports *report.Writer, fallback backend.Config, interval time.Duration) *AnalysisWorker {
	return &AnalysisWorker{
		service:  service,
		factory:  factory,
		reports:  reports,
		fallback: fallback,
		interval: interval,
	}
}

// HandleAnalyzeRequest processes a single analyze request from AMQP. An
// empty source type in the message falls back to the configured default.
func (w *AnalysisWorker) HandleAnalyzeRequest(ctx context.Context, msg *amqp.AnalyzeRequestMessage) error {
	cfg := w.fallback
	if msg.SourceType != "" {
		cfg = backend.Config{
			Type:  backend.Type(msg.SourceType),
			Path:  msg.SourcePath,
			Sheet: w.fallback.Sheet,
		}
	}

	slog.InfoContext(ctx, "Processing analyze request",
		log.FieldComponent, log.ComponentWorker,
		"source_type", cfg.Type,
		"source_path", cfg.Path,
		"requested_at", msg.Timestamp)

	return w.runOnce(ctx, cfg)
}

// RunPeriodic re-runs the pipeline against the default source on the
// configured interval until the context ends. The first run happens
// immediately so a fresh worker has results without waiting a full tick.
func (w *AnalysisWorker) RunPeriodic(ctx context.Context) error {
	if err := w.runOnce(ctx, w.fallback); err != nil {
		slog.ErrorContext(ctx, "Initial scheduled analysis failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Started periodic analysis", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic analysis", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.runOnce(ctx, w.fallback); err != nil {
				slog.ErrorContext(ctx, "Scheduled analysis failed", "error", err)
			}
		}
	}
}

func (w *AnalysisWorker) runOnce(ctx context.Context, cfg backend.Config) error {
	src, err := w.factory.CreateSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}

	result, err := w.service.Run(ctx, src, string(cfg.Type))
	if err != nil {
		return fmt.Errorf("run analysis: %w", err)
	}

	if w.reports != nil {
		if _, err := w.reports.WriteAll(ctx, result); err != nil {
			slog.ErrorContext(ctx, "Failed to write reports", "error", err)
			// Run is stored, reports can be regenerated on the next pass
		}
	}

	return nil
}
