package http

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"mauzo/internal/core"
	"mauzo/internal/storage"
)

type runResponse struct {
	ID        int64           `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Source    string          `json:"source"`
	RowCount  int             `json:"row_count"`
	Discarded discardResponse `json:"discarded"`
	Stats     statsResponse   `json:"stats"`
}

type discardResponse struct {
	Duplicates       int `json:"duplicates"`
	MissingBusiness  int `json:"missing_business"`
	InvalidDates     int `json:"invalid_dates"`
	InvalidQuantity  int `json:"invalid_quantity"`
	InvalidUnitValue int `json:"invalid_unit_value"`
	Total            int `json:"total"`
}

type statsResponse struct {
	TotalValue     float64 `json:"total_value"`
	PeakPeriod     string  `json:"peak_period,omitempty"`
	PeakValue      float64 `json:"peak_value"`
	AvgPeriodValue float64 `json:"avg_period_value"`
	Periods        int     `json:"periods"`
}

type bucketResponse struct {
	Category   string  `json:"category,omitempty"`
	BusinessID string  `json:"business_id,omitempty"`
	Period     string  `json:"period,omitempty"`
	Quantity   float64 `json:"quantity"`
	TotalValue float64 `json:"total_value"`
	Count      int     `json:"count"`
}

type segmentResponse struct {
	BusinessID   string    `json:"business_id"`
	TotalSpend   float64   `json:"total_spend"`
	Transactions int       `json:"transactions"`
	AvgValue     float64   `json:"avg_value"`
	LastPurchase time.Time `json:"last_purchase"`
	RecencyDays  int       `json:"recency_days"`
	Tier         string    `json:"tier"`
}

type findingResponse struct {
	Kind     string          `json:"kind"`
	Label    string          `json:"label,omitempty"`
	Value    float64         `json:"value"`
	Trend    string          `json:"trend,omitempty"`
	DeltaPct float64         `json:"delta_pct,omitempty"`
	Tiers    []core.TierStat `json:"tiers,omitempty"`
}

// handleLatestRun returns the header of the most recent stored run.
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	s.serveCached(w, r, func() (any, error) {
		rec, err := s.runs.LatestRun(r.Context())
		if err != nil {
			return nil, err
		}
		return runToResponse(rec), nil
	})
}

// handleAggregates returns one aggregate view of the latest run. The dims
// query parameter lists the grouping dimensions, comma separated; it
// defaults to category.
func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	dims, ok := parseDims(r.URL.Query().Get("dims"))
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown dimension in dims parameter")
		return
	}

	s.serveCached(w, r, func() (any, error) {
		rec, err := s.runs.LatestRun(r.Context())
		if err != nil {
			return nil, err
		}
		buckets, err := s.runs.ListBuckets(r.Context(), rec.ID, core.DimensionSetLabel(dims...))
		if err != nil {
			return nil, err
		}

		out := make([]bucketResponse, 0, len(buckets))
		for _, b := range buckets {
			out = append(out, bucketToResponse(b))
		}
		return map[string]any{
			"run_id":  rec.ID,
			"dims":    core.DimensionSetLabel(dims...),
			"buckets": out,
		}, nil
	})
}

// handleSegments returns the segmentation of the latest run, highest spend
// first.
func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	s.serveCached(w, r, func() (any, error) {
		rec, err := s.runs.LatestRun(r.Context())
		if err != nil {
			return nil, err
		}
		segments, err := s.runs.ListSegments(r.Context(), rec.ID)
		if err != nil {
			return nil, err
		}

		out := make([]segmentResponse, 0, len(segments))
		for _, seg := range segments {
			out = append(out, segmentToResponse(seg))
		}
		sortSegments(out)
		return map[string]any{
			"run_id":   rec.ID,
			"segments": out,
		}, nil
	})
}

// handleFindings returns the synthesized findings of the latest run.
func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	s.serveCached(w, r, func() (any, error) {
		rec, err := s.runs.LatestRun(r.Context())
		if err != nil {
			return nil, err
		}
		findings, err := s.runs.ListFindings(r.Context(), rec.ID)
		if err != nil {
			return nil, err
		}

		out := make([]findingResponse, 0, len(findings))
		for _, f := range findings {
			out = append(out, findingToResponse(f))
		}
		return map[string]any{
			"run_id":   rec.ID,
			"findings": out,
		}, nil
	})
}

func (s *Server) respondBuildError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNoRuns) {
		respondError(w, http.StatusNotFound, "no analysis runs stored yet")
		return
	}
	slog.ErrorContext(r.Context(), "Dashboard query failed", "error", err, "url", r.URL.Path)
	respondError(w, http.StatusInternalServerError, "internal error")
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// parseDims turns a comma-separated dims parameter into dimensions. Empty
// input means the category view.
func parseDims(raw string) ([]core.Dimension, bool) {
	if strings.TrimSpace(raw) == "" {
		return []core.Dimension{core.ByCategory}, true
	}

	var dims []core.Dimension
	for _, part := range strings.Split(raw, ",") {
		d := core.Dimension(strings.TrimSpace(part))
		if !d.Valid() {
			return nil, false
		}
		dims = append(dims, d)
	}
	return dims, true
}

func runToResponse(rec storage.RunRecord) runResponse {
	return runResponse{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Source:    rec.Source,
		RowCount:  rec.RowCount,
		Discarded: discardResponse{
			Duplicates:       rec.Discards.Duplicates,
			MissingBusiness:  rec.Discards.MissingBusiness,
			InvalidDates:     rec.Discards.InvalidDates,
			InvalidQuantity:  rec.Discards.InvalidQuantity,
			InvalidUnitValue: rec.Discards.InvalidUnitValue,
			Total:            rec.Discards.Total(),
		},
		Stats: statsResponse{
			TotalValue:     rec.Stats.TotalValue,
			PeakPeriod:     periodKeyOrEmpty(rec.Stats.PeakPeriod),
			PeakValue:      rec.Stats.PeakValue,
			AvgPeriodValue: rec.Stats.AvgPeriodValue,
			Periods:        rec.Stats.Periods,
		},
	}
}

func bucketToResponse(b core.Bucket) bucketResponse {
	return bucketResponse{
		Category:   b.Category,
		BusinessID: b.BusinessID,
		Period:     periodKeyOrEmpty(b.Period),
		Quantity:   b.Quantity,
		TotalValue: b.TotalValue,
		Count:      b.Count,
	}
}

func segmentToResponse(seg core.Segment) segmentResponse {
	return segmentResponse{
		BusinessID:   seg.Profile.BusinessID,
		TotalSpend:   seg.Profile.TotalSpend,
		Transactions: seg.Profile.Transactions,
		AvgValue:     seg.Profile.AvgValue,
		LastPurchase: seg.Profile.LastPurchase,
		RecencyDays:  seg.Profile.RecencyDays,
		Tier:         string(seg.Tier),
	}
}

func findingToResponse(f core.Finding) findingResponse {
	return findingResponse{
		Kind:     string(f.Kind),
		Label:    f.Label,
		Value:    f.Value,
		Trend:    string(f.Trend),
		DeltaPct: f.DeltaPct,
		Tiers:    f.Tiers,
	}
}

// sortSegments orders by spend descending, ties by business id, matching
// the tier assignment order.
func sortSegments(segments []segmentResponse) {
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].TotalSpend != segments[j].TotalSpend {
			return segments[i].TotalSpend > segments[j].TotalSpend
		}
		return segments[i].BusinessID < segments[j].BusinessID
	})
}

func periodKeyOrEmpty(p core.Period) string {
	if p.IsZero() {
		return ""
	}
	return p.Key()
}
