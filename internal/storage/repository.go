package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mauzo/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNoRuns is returned when no analysis run has been stored yet.
var ErrNoRuns = errors.New("no analysis runs stored")

// RunRecord is the stored header of one analysis run.
type RunRecord struct {
	ID        int64
	CreatedAt time.Time
	Source    string
	RowCount  int
	Discards  core.DiscardReport
	Stats     core.Stats
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveRun persists a whole run (header, aggregate views, segmentation,
// findings) in one transaction and returns the run id.
func (r *SQLiteRepository) SaveRun(ctx context.Context, res core.RunResult) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			source, row_count, duplicates, missing_business, invalid_dates,
			invalid_quantity, invalid_unit_value, total_value, peak_period,
			peak_value, avg_period_value, periods
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Source, len(res.Cleaned),
		res.Discards.Duplicates, res.Discards.MissingBusiness, res.Discards.InvalidDates,
		res.Discards.InvalidQuantity, res.Discards.InvalidUnitValue,
		res.Stats.TotalValue, res.Stats.PeakPeriod.Key(),
		res.Stats.PeakValue, res.Stats.AvgPeriodValue, res.Stats.Periods,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	views := []struct {
		dims    string
		buckets []core.Bucket
	}{
		{core.DimensionSetLabel(core.ByCategory), res.ByCategory},
		{core.DimensionSetLabel(core.ByBusiness), res.ByBusiness},
		{core.DimensionSetLabel(core.ByPeriod), res.ByPeriod},
	}
	for _, view := range views {
		if err := insertBuckets(ctx, tx, runID, view.dims, view.buckets); err != nil {
			return 0, err
		}
	}

	for _, seg := range res.Segments {
		p := seg.Profile
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (
				run_id, business_id, total_spend, transactions, avg_value,
				last_purchase, recency_days, tier
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, p.BusinessID, p.TotalSpend, p.Transactions, p.AvgValue,
			p.LastPurchase.Format(time.RFC3339), p.RecencyDays, string(seg.Tier),
		)
		if err != nil {
			return 0, fmt.Errorf("insert profile %s: %w", p.BusinessID, err)
		}
	}

	for i, f := range res.Findings {
		tiers := ""
		if len(f.Tiers) > 0 {
			encoded, err := json.Marshal(f.Tiers)
			if err != nil {
				return 0, fmt.Errorf("encode tier stats: %w", err)
			}
			tiers = string(encoded)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO findings (run_id, position, kind, label, value, trend, delta_pct, tiers)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, string(f.Kind), f.Label, f.Value, string(f.Trend), f.DeltaPct, tiers,
		)
		if err != nil {
			return 0, fmt.Errorf("insert finding %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}

	slog.InfoContext(ctx, "Analysis run saved",
		"run_id", runID,
		"source", res.Source,
		"rows", len(res.Cleaned),
		"discarded", res.Discards.Total(),
		"findings", len(res.Findings))

	return runID, nil
}

func insertBuckets(ctx context.Context, tx *sql.Tx, runID int64, dims string, buckets []core.Bucket) error {
	for i, b := range buckets {
		period := ""
		if !b.Period.IsZero() {
			period = b.Period.Key()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO buckets (run_id, dims, position, category, business_id, period, quantity, total_value, row_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, dims, i, b.Category, b.BusinessID, period, b.Quantity, b.TotalValue, b.Count,
		)
		if err != nil {
			return fmt.Errorf("insert bucket %s[%d]: %w", dims, i, err)
		}
	}
	return nil
}

// LatestRun returns the most recently stored run header.
func (r *SQLiteRepository) LatestRun(ctx context.Context) (RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, row_count, duplicates, missing_business,
		       invalid_dates, invalid_quantity, invalid_unit_value, total_value,
		       peak_period, peak_value, avg_period_value, periods
		FROM runs ORDER BY id DESC LIMIT 1`)
	return scanRun(row)
}

func scanRun(row *sql.Row) (RunRecord, error) {
	var rec RunRecord
	var createdAt, peakPeriod string
	err := row.Scan(
		&rec.ID, &createdAt, &rec.Source, &rec.RowCount,
		&rec.Discards.Duplicates, &rec.Discards.MissingBusiness,
		&rec.Discards.InvalidDates, &rec.Discards.InvalidQuantity,
		&rec.Discards.InvalidUnitValue, &rec.Stats.TotalValue,
		&peakPeriod, &rec.Stats.PeakValue, &rec.Stats.AvgPeriodValue,
		&rec.Stats.Periods,
	)
	if err == sql.ErrNoRows {
		return RunRecord{}, ErrNoRuns
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	if t, perr := time.Parse("2006-01-02 15:04:05", createdAt); perr == nil {
		rec.CreatedAt = t
	}
	rec.Stats.PeakPeriod = parsePeriodKey(peakPeriod)
	return rec, nil
}

// ListBuckets returns one stored aggregate view of a run, in stored order.
func (r *SQLiteRepository) ListBuckets(ctx context.Context, runID int64, dims string) ([]core.Bucket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, business_id, period, quantity, total_value, row_count
		FROM buckets WHERE run_id = ? AND dims = ? ORDER BY position`,
		runID, dims)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	buckets := []core.Bucket{}
	for rows.Next() {
		var b core.Bucket
		var period string
		if err := rows.Scan(&b.Category, &b.BusinessID, &period, &b.Quantity, &b.TotalValue, &b.Count); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		b.Period = parsePeriodKey(period)
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// ListSegments returns the stored segmentation of a run.
func (r *SQLiteRepository) ListSegments(ctx context.Context, runID int64) (map[string]core.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT business_id, total_spend, transactions, avg_value, last_purchase, recency_days, tier
		FROM profiles WHERE run_id = ? ORDER BY business_id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	segments := make(map[string]core.Segment)
	for rows.Next() {
		var p core.Profile
		var lastPurchase, tier string
		if err := rows.Scan(&p.BusinessID, &p.TotalSpend, &p.Transactions, &p.AvgValue, &lastPurchase, &p.RecencyDays, &tier); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, lastPurchase); perr == nil {
			p.LastPurchase = t
		}
		segments[p.BusinessID] = core.Segment{Profile: p, Tier: core.Tier(tier)}
	}
	return segments, rows.Err()
}

// ListFindings returns the stored findings of a run, in synthesis order.
func (r *SQLiteRepository) ListFindings(ctx context.Context, runID int64) ([]core.Finding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, label, value, trend, delta_pct, tiers
		FROM findings WHERE run_id = ? ORDER BY position`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	findings := []core.Finding{}
	for rows.Next() {
		var f core.Finding
		var kind, trend, tiers string
		if err := rows.Scan(&kind, &f.Label, &f.Value, &trend, &f.DeltaPct, &tiers); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Kind = core.Kind(kind)
		f.Trend = core.Trend(trend)
		if tiers != "" {
			if err := json.Unmarshal([]byte(tiers), &f.Tiers); err != nil {
				return nil, fmt.Errorf("decode tier stats: %w", err)
			}
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func parsePeriodKey(key string) core.Period {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		return core.Period{}
	}
	var p core.Period
	if _, err := fmt.Sscanf(key, "%04d-%02d", &p.Year, &p.Month); err != nil {
		return core.Period{}
	}
	return p
}
