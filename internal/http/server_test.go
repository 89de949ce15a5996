package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mauzo/internal/amqp"
	"mauzo/internal/core"
	"mauzo/internal/storage"
)

type fakeRunReader struct {
	latestErr error
	record    storage.RunRecord
	buckets   map[string][]core.Bucket
	segments  map[string]core.Segment
	findings  []core.Finding

	latestCalls int
}

func (f *fakeRunReader) LatestRun(ctx context.Context) (storage.RunRecord, error) {
	f.latestCalls++
	if f.latestErr != nil {
		return storage.RunRecord{}, f.latestErr
	}
	return f.record, nil
}

func (f *fakeRunReader) ListBuckets(ctx context.Context, runID int64, dims string) ([]core.Bucket, error) {
	return f.buckets[dims], nil
}

func (f *fakeRunReader) ListSegments(ctx context.Context, runID int64) (map[string]core.Segment, error) {
	return f.segments, nil
}

func (f *fakeRunReader) ListFindings(ctx context.Context, runID int64) ([]core.Finding, error) {
	return f.findings, nil
}

func newFakeReader() *fakeRunReader {
	return &fakeRunReader{
		record: storage.RunRecord{
			ID:        7,
			CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			Source:    "csv",
			RowCount:  3,
			Discards:  core.DiscardReport{Duplicates: 1},
			Stats: core.Stats{
				TotalValue: 130,
				PeakPeriod: core.Period{Year: 2025, Month: 2},
				PeakValue:  110,
				Periods:    2,
			},
		},
		buckets: map[string][]core.Bucket{
			"category": {
				{Category: "Drink", TotalValue: 100, Count: 1},
				{Category: "Food", TotalValue: 30, Count: 2},
			},
			"period": {
				{Period: core.Period{Year: 2025, Month: 2}, TotalValue: 110, Count: 2},
				{Period: core.Period{Year: 2025, Month: 1}, TotalValue: 20, Count: 1},
			},
		},
		segments: map[string]core.Segment{
			"biz-1": {
				Profile: core.Profile{BusinessID: "biz-1", TotalSpend: 30},
				Tier:    core.TierLow,
			},
			"biz-2": {
				Profile: core.Profile{BusinessID: "biz-2", TotalSpend: 100},
				Tier:    core.TierHigh,
			},
		},
		findings: []core.Finding{
			{Kind: core.FindingTopCategory, Label: "Drink", Value: 100},
		},
	}
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, w.Body.String())
	}
}

func TestHandleLatestRun(t *testing.T) {
	srv := NewServer(":0", newFakeReader())
	defer srv.Shutdown(context.Background())

	w := doRequest(t, srv, http.MethodGet, "/api/runs/latest")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got runResponse
	decodeBody(t, w, &got)
	if got.ID != 7 || got.Source != "csv" || got.RowCount != 3 {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.Stats.PeakPeriod != "2025-02" {
		t.Errorf("PeakPeriod = %q, want 2025-02", got.Stats.PeakPeriod)
	}
	if got.Discarded.Total != 1 {
		t.Errorf("Discarded.Total = %d, want 1", got.Discarded.Total)
	}
}

func TestHandleLatestRunNoRuns(t *testing.T) {
	reader := newFakeReader()
	reader.latestErr = storage.ErrNoRuns
	srv := NewServer(":0", reader)
	defer srv.Shutdown(context.Background())

	w := doRequest(t, srv, http.MethodGet, "/api/runs/latest")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleAggregatesDefaultDims(t *testing.T) {
	srv := NewServer(":0", newFakeReader())
	defer srv.Shutdown(context.Background())

	w := doRequest(t, srv, http.MethodGet, "/api/aggregates")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got struct {
		RunID   int64            `json:"run_id"`
		Dims    string           `json:"dims"`
		Buckets []bucketResponse `json:"buckets"`
	}
	decodeBody(t, w, &got)
	if got.Dims != "category" {
		t.Errorf("dims = %q, want category", got.Dims)
	}
	if len(got.Buckets) != 2 || got.Buckets[0].Category != "Drink" {
		t.Errorf("unexpected buckets: %+v", got.Buckets)
	}
}

func TestHandleAggregatesPeriodDims(t *testing.T) {
	srv := NewServer(":0", newFakeReader())
	defer srv.Shutdown(context.Background())

	w := doRequest(t, srv, http.MethodGet, "/api/aggregates?dims=period")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got struct {
		Buckets []bucketResponse `json:"buckets"`
	}
	decodeBody(t, w, &got)
	if len(got.Buckets) != 2 || got.Buckets[0].Period != "2025-02" {
		t.Errorf("unexpected buckets: %+v", got.Buckets)
	}
}

func TestHandleAggregatesUnknownDims(t *testing.T) {
	srv := NewServer(":0", newFakeReader())
	defer srv.Shutdown(context.Background())

	w := doRequest(t, srv, http.MethodGet, "/api/aggregates?dims=week")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSegmentsOrder(t *testing.T) {
	srv := NewServer(":0", newFakeReader())
	defer srv.Shutdown(context.Background())

	w := doRequest(t, srv, http.MethodGet, "/api/segments")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got struct {
		Segments []segmentResponse `json:"segments"`
	}
	decodeBody(t, w, &got)
	if len(got.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(got.Segments))
	}
	// Highest spend first
	if got.Segments[0].BusinessID != "biz-2" || got.Segments[0].Tier != "HIGH" {
		t.Errorf("unexpected first segment: %+v", got.Segments[0])
	}
}

func TestHandleFindings(t *testing.T) {
	srv := NewServer(":0", newFakeReader())
	defer srv.Shutdown(context.Background())

	w := doRequest(t, srv, http.MethodGet, "/api/findings")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got struct {
		Findings []findingResponse `json:"findings"`
	}
	decodeBody(t, w, &got)
	if len(got.Findings) != 1 || got.Findings[0].Kind != "top_category" {
		t.Errorf("unexpected findings: %+v", got.Findings)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := NewServer(":0", newFakeReader())
	defer srv.Shutdown(context.Background())

	w := doRequest(t, srv, http.MethodPost, "/api/runs/latest")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
	if w.Header().Get("Allow") != "GET" {
		t.Errorf("Allow = %q, want GET", w.Header().Get("Allow"))
	}
}

func TestResponseCaching(t *testing.T) {
	reader := newFakeReader()
	srv := NewServer(":0", reader)
	defer srv.Shutdown(context.Background())

	doRequest(t, srv, http.MethodGet, "/api/runs/latest")
	doRequest(t, srv, http.MethodGet, "/api/runs/latest")

	if reader.latestCalls != 1 {
		t.Errorf("storage hit %d times, want 1 (second response cached)", reader.latestCalls)
	}

	srv.InvalidateCache()
	doRequest(t, srv, http.MethodGet, "/api/runs/latest")
	if reader.latestCalls != 2 {
		t.Errorf("storage hit %d times after invalidation, want 2", reader.latestCalls)
	}
}

func TestAnalysisCompletedInvalidatesCache(t *testing.T) {
	reader := newFakeReader()
	srv := NewServer(":0", reader)
	defer srv.Shutdown(context.Background())

	doRequest(t, srv, http.MethodGet, "/api/runs/latest")
	doRequest(t, srv, http.MethodGet, "/api/runs/latest")
	if reader.latestCalls != 1 {
		t.Fatalf("storage hit %d times before event, want 1", reader.latestCalls)
	}

	msg := amqp.NewAnalysisCompletedMessage(8, 3, core.DiscardReport{}, 4)
	if err := srv.HandleAnalysisCompleted(msg); err != nil {
		t.Fatalf("HandleAnalysisCompleted: %v", err)
	}

	doRequest(t, srv, http.MethodGet, "/api/runs/latest")
	if reader.latestCalls != 2 {
		t.Errorf("storage hit %d times after event, want 2", reader.latestCalls)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	reader := newFakeReader()
	reader.latestErr = storage.ErrNoRuns
	srv := NewServer(":0", reader)
	defer srv.Shutdown(context.Background())

	doRequest(t, srv, http.MethodGet, "/api/runs/latest")

	// First run lands, the 404 must not stick around.
	reader.latestErr = nil
	w := doRequest(t, srv, http.MethodGet, "/api/runs/latest")
	if w.Code != http.StatusOK {
		t.Errorf("status after run stored = %d, want 200", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := NewServer(":0", newFakeReader())
	defer srv.Shutdown(context.Background())

	if w := doRequest(t, srv, http.MethodGet, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", w.Code)
	}
	if w := doRequest(t, srv, http.MethodGet, "/readyz"); w.Code != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", w.Code)
	}
}

func TestContentType(t *testing.T) {
	srv := NewServer(":0", newFakeReader())
	defer srv.Shutdown(context.Background())

	w := doRequest(t, srv, http.MethodGet, "/api/findings")
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}
