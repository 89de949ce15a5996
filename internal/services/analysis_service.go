// Package services orchestrates the analysis pipeline: load rows from a
// source, normalize them, build the aggregate views and the segmentation
// in parallel, synthesize findings, then persist and announce the run.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"mauzo/internal/amqp"
	"mauzo/internal/analyze"
	"mauzo/internal/core"
	"mauzo/internal/log"
	"mauzo/internal/normalize"
	"mauzo/internal/source"
	"mauzo/internal/storage"
)

// AnalysisService runs the pipeline end to end. Storage and AMQP are both
// optional; a nil dependency skips that step instead of failing the run.
type AnalysisService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewAnalysisService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *AnalysisService {
	return &AnalysisService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Run executes one full pipeline pass against src. The three aggregate views
// and the segmentation are independent reads of the cleaned table, so they
// run concurrently. The returned result is complete even when persistence is
// skipped.
func (s *AnalysisService) Run(ctx context.Context, src source.RowSource, sourceName string) (core.RunResult, error) {
	raws, err := src.Load(ctx)
	if err != nil {
		return core.RunResult{}, fmt.Errorf("load rows: %w", err)
	}

	cleaned, discards := normalize.Normalize(raws)
	slog.InfoContext(ctx, "Normalized source rows",
		log.FieldComponent, log.ComponentPipeline,
		log.FieldOperation, log.OpNormalize,
		log.FieldSource, sourceName,
		"loaded", len(raws),
		"cleaned", len(cleaned),
		"duplicates", discards.Duplicates,
		"invalid", discards.Invalid())

	result := core.RunResult{
		Source:   sourceName,
		Cleaned:  cleaned,
		Discards: discards,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result.ByCategory, err = analyze.Aggregate(cleaned, core.ByCategory)
		return err
	})
	g.Go(func() error {
		var err error
		result.ByBusiness, err = analyze.Aggregate(cleaned, core.ByBusiness)
		return err
	})
	g.Go(func() error {
		var err error
		result.ByPeriod, err = analyze.Aggregate(cleaned, core.ByPeriod)
		return err
	})
	g.Go(func() error {
		result.Segments = analyze.Segment(cleaned)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return core.RunResult{}, fmt.Errorf("aggregate cleaned rows: %w", err)
	}

	result.Findings, result.Stats = analyze.Synthesize(
		result.ByCategory, result.ByBusiness, result.ByPeriod, result.Segments)

	runID, err := s.persistRun(ctx, result)
	if err != nil {
		return core.RunResult{}, err
	}

	if err := s.publishCompleted(ctx, runID, result); err != nil {
		slog.ErrorContext(ctx, "Failed to publish completion event",
			"run_id", runID, "error", err)
		// Run is already stored, don't fail it over the event
	}

	return result, nil
}

func (s *AnalysisService) persistRun(ctx context.Context, result core.RunResult) (int64, error) {
	if s.storage == nil {
		slog.WarnContext(ctx, "Storage not available, skipping run persistence")
		return 0, nil
	}

	runID, err := s.storage.SaveRun(ctx, result)
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}
	return runID, nil
}

func (s *AnalysisService) publishCompleted(ctx context.Context, runID int64, result core.RunResult) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping completion event")
		return nil
	}

	msg := amqp.NewAnalysisCompletedMessage(runID, len(result.Cleaned), result.Discards, len(result.Findings))
	return s.amqpClient.PublishAnalysisCompleted(ctx, msg)
}

// Close closes both storage and AMQP connections
func (s *AnalysisService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close analysis service: %v", errs)
	}

	return nil
}
