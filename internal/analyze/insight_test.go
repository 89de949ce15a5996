package analyze

import (
	"reflect"
	"testing"

	"mauzo/internal/core"
)

func TestSynthesizeOrderAndContent(t *testing.T) {
	categories := []core.Bucket{
		{Category: "Drink", TotalValue: 100},
		{Category: "Food", TotalValue: 30},
	}
	businesses := []core.Bucket{
		{BusinessID: "biz-2", TotalValue: 80},
		{BusinessID: "biz-1", TotalValue: 50},
	}
	periods := []core.Bucket{
		{Period: core.Period{Year: 2025, Month: 1}, TotalValue: 40},
		{Period: core.Period{Year: 2025, Month: 2}, TotalValue: 90},
	}
	segments := Segment([]core.Transaction{
		tx("biz-1", "Food", 1, 50, "2025-01-10"),
		tx("biz-2", "Drink", 1, 80, "2025-02-10"),
	})

	findings, stats := Synthesize(categories, businesses, periods, segments)

	wantKinds := []core.Kind{
		core.FindingTopCategory,
		core.FindingTopBusiness,
		core.FindingTrend,
		core.FindingTierSummary,
	}
	if len(findings) != len(wantKinds) {
		t.Fatalf("findings = %d, want %d", len(findings), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if findings[i].Kind != kind {
			t.Errorf("findings[%d].Kind = %s, want %s", i, findings[i].Kind, kind)
		}
	}

	if findings[0].Label != "Drink" || findings[0].Value != 100 {
		t.Errorf("top category = %+v, want Drink/100", findings[0])
	}
	if findings[1].Label != "biz-2" || findings[1].Value != 80 {
		t.Errorf("top business = %+v, want biz-2/80", findings[1])
	}

	trend := findings[2]
	if trend.Trend != core.TrendUp {
		t.Errorf("trend = %s, want up", trend.Trend)
	}
	if trend.Label != "2025-02" {
		t.Errorf("trend label = %s, want 2025-02", trend.Label)
	}
	if trend.DeltaPct != 125 {
		t.Errorf("DeltaPct = %v, want 125", trend.DeltaPct)
	}

	if stats.TotalValue != 130 {
		t.Errorf("TotalValue = %v, want 130", stats.TotalValue)
	}
	if stats.PeakPeriod != (core.Period{Year: 2025, Month: 2}) || stats.PeakValue != 90 {
		t.Errorf("peak = %v/%v, want 2025-02/90", stats.PeakPeriod, stats.PeakValue)
	}
	if stats.AvgPeriodValue != 65 {
		t.Errorf("AvgPeriodValue = %v, want 65", stats.AvgPeriodValue)
	}
	if stats.Periods != 2 {
		t.Errorf("Periods = %d, want 2", stats.Periods)
	}
}

func TestSynthesizeOmitsAbsentFindings(t *testing.T) {
	findings, stats := Synthesize(nil, nil, nil, nil)
	if len(findings) != 0 {
		t.Errorf("findings = %d, want 0", len(findings))
	}
	if stats != (core.Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestSynthesizeTrendNeedsTwoPeriods(t *testing.T) {
	periods := []core.Bucket{{Period: core.Period{Year: 2025, Month: 1}, TotalValue: 40}}

	findings, _ := Synthesize(nil, nil, periods, nil)
	for _, f := range findings {
		if f.Kind == core.FindingTrend {
			t.Error("trend finding present with a single period")
		}
	}
}

func TestTrendDirections(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur float64
		want      core.Trend
	}{
		{"up", 40, 90, core.TrendUp},
		{"down", 90, 40, core.TrendDown},
		{"flat", 50, 50, core.TrendFlat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods := []core.Bucket{
				{Period: core.Period{Year: 2025, Month: 1}, TotalValue: tt.prev},
				{Period: core.Period{Year: 2025, Month: 2}, TotalValue: tt.cur},
			}
			f, ok := trendFinding(periods)
			if !ok {
				t.Fatal("expected a trend finding")
			}
			if f.Trend != tt.want {
				t.Errorf("trend = %s, want %s", f.Trend, tt.want)
			}
		})
	}
}

func TestTrendZeroPreviousPeriod(t *testing.T) {
	periods := []core.Bucket{
		{Period: core.Period{Year: 2025, Month: 1}, TotalValue: 0},
		{Period: core.Period{Year: 2025, Month: 2}, TotalValue: 90},
	}
	f, ok := trendFinding(periods)
	if !ok {
		t.Fatal("expected a trend finding")
	}
	if f.DeltaPct != 0 {
		t.Errorf("DeltaPct = %v, want 0 when previous period is zero", f.DeltaPct)
	}
	if f.Trend != core.TrendUp {
		t.Errorf("trend = %s, want up", f.Trend)
	}
}

func TestTierSummaryRepresentatives(t *testing.T) {
	// Six businesses: two per tier. Representatives come back highest
	// spend first, capped at three.
	segments := Segment(spendRows(map[string]float64{
		"a": 60, "b": 50, "c": 40, "d": 30, "e": 20, "f": 10,
	}))

	summary := tierSummary(segments)
	if len(summary.Tiers) != 3 {
		t.Fatalf("tier stats = %d, want 3", len(summary.Tiers))
	}

	wantOrder := []core.Tier{core.TierHigh, core.TierMedium, core.TierLow}
	wantReps := [][]string{{"a", "b"}, {"c", "d"}, {"e", "f"}}
	for i, stat := range summary.Tiers {
		if stat.Tier != wantOrder[i] {
			t.Errorf("tier[%d] = %s, want %s", i, stat.Tier, wantOrder[i])
		}
		if stat.Count != 2 {
			t.Errorf("tier %s count = %d, want 2", stat.Tier, stat.Count)
		}
		if !reflect.DeepEqual(stat.Representatives, wantReps[i]) {
			t.Errorf("tier %s representatives = %v, want %v", stat.Tier, stat.Representatives, wantReps[i])
		}
	}
}

func TestTierSummaryCapsRepresentatives(t *testing.T) {
	spend := map[string]float64{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		spend[id] = float64(len(spend) + 1)
	}
	segments := Segment(spendRows(spend))

	summary := tierSummary(segments)
	for _, stat := range summary.Tiers {
		if len(stat.Representatives) > maxRepresentatives {
			t.Errorf("tier %s has %d representatives, cap is %d",
				stat.Tier, len(stat.Representatives), maxRepresentatives)
		}
	}
}
