package core

import "strings"

const (
	ByCategory Dimension = "category"
	ByBusiness Dimension = "business"
	ByPeriod   Dimension = "period"
)

const (
	FindingTopCategory Kind = "top_category"
	FindingTopBusiness Kind = "top_business"
	FindingTrend       Kind = "trend_direction"
	FindingTierSummary Kind = "tier_summary"
)

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

type (
	// Dimension names one grouping axis for the aggregator.
	Dimension string

	// Kind identifies the type of a synthesized finding.
	Kind string

	// Trend is the sign of a period-over-period delta.
	Trend string

	// Bucket is an aggregate record for one grouping key combination.
	// Only the fields named by the run's dimension set carry values.
	Bucket struct {
		Category   string
		BusinessID string
		Period     Period
		Quantity   float64
		TotalValue float64
		Count      int
	}

	// DiscardReport counts rows excluded during normalization, by reason.
	DiscardReport struct {
		Duplicates       int
		MissingBusiness  int
		InvalidDates     int
		InvalidQuantity  int
		InvalidUnitValue int
	}

	// TierStat summarizes one tier: how many businesses landed in it and a
	// few representative (highest-spend) members.
	TierStat struct {
		Tier            Tier
		Count           int
		Representatives []string
	}

	// Finding is one synthesized insight. Kind decides which fields are
	// meaningful; the reporting layer owns all rendering.
	Finding struct {
		Kind     Kind
		Label    string  // category name, business id, or empty
		Value    float64 // total value behind the finding
		Trend    Trend   // FindingTrend only
		DeltaPct float64 // FindingTrend only
		Tiers    []TierStat
	}

	// Stats carries the run-level highlight numbers the original analysis
	// tracked alongside its findings.
	Stats struct {
		TotalValue     float64
		PeakPeriod     Period
		PeakValue      float64
		AvgPeriodValue float64
		Periods        int
	}
)

// CanonicalDimensions fixes the order dimension names appear in composite
// keys and dimension-set labels.
var CanonicalDimensions = []Dimension{ByCategory, ByBusiness, ByPeriod}

// DimensionSetLabel renders a dimension set as a stable "category|period"
// style label, independent of the order the caller listed the dimensions.
func DimensionSetLabel(dims ...Dimension) string {
	set := make(map[Dimension]bool, len(dims))
	for _, d := range dims {
		set[d] = true
	}
	parts := make([]string, 0, len(set))
	for _, d := range CanonicalDimensions {
		if set[d] {
			parts = append(parts, string(d))
		}
	}
	return strings.Join(parts, "|")
}

// RunResult is everything one pipeline run hands to the reporting layer:
// the cleaned table with its discard counts, the standard aggregate views,
// the segmentation, and the synthesized findings.
type RunResult struct {
	Source     string
	Cleaned    []Transaction
	Discards   DiscardReport
	ByCategory []Bucket
	ByBusiness []Bucket
	ByPeriod   []Bucket
	Segments   map[string]Segment
	Findings   []Finding
	Stats      Stats
}

// Valid reports whether the dimension is one of the three known axes.
func (d Dimension) Valid() bool {
	switch d {
	case ByCategory, ByBusiness, ByPeriod:
		return true
	}
	return false
}

// Invalid returns the number of rows dropped for validation reasons,
// excluding duplicates.
func (r DiscardReport) Invalid() int {
	return r.MissingBusiness + r.InvalidDates + r.InvalidQuantity + r.InvalidUnitValue
}

// Total returns the number of rows dropped for any reason.
func (r DiscardReport) Total() int {
	return r.Invalid() + r.Duplicates
}

// Key returns the composite grouping key of the bucket, with parts in the
// canonical dimension order. Used for map identity and ascending tie-breaks.
func (b Bucket) Key() string {
	parts := make([]string, 0, 3)
	if b.Category != "" {
		parts = append(parts, b.Category)
	}
	if b.BusinessID != "" {
		parts = append(parts, b.BusinessID)
	}
	if !b.Period.IsZero() {
		parts = append(parts, b.Period.Key())
	}
	return strings.Join(parts, "|")
}
