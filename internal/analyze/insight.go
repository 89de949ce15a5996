package analyze

import (
	"sort"

	"mauzo/internal/core"
)

// maxRepresentatives caps how many businesses a tier summary names per tier.
const maxRepresentatives = 3

// Synthesize combines the aggregate views and the segmentation into an
// ordered findings sequence: top category, top business, trend direction,
// tier summary. Findings whose inputs are absent are omitted rather than
// zero-faked; with no data at all the slice is empty. The returned stats
// carry the run-level highlight numbers for the reporting layer.
func Synthesize(categories, businesses, periods []core.Bucket, segments map[string]core.Segment) ([]core.Finding, core.Stats) {
	findings := make([]core.Finding, 0, 4)

	if len(categories) > 0 {
		top := categories[0]
		findings = append(findings, core.Finding{
			Kind:  core.FindingTopCategory,
			Label: top.Category,
			Value: top.TotalValue,
		})
	}

	if len(businesses) > 0 {
		top := businesses[0]
		findings = append(findings, core.Finding{
			Kind:  core.FindingTopBusiness,
			Label: top.BusinessID,
			Value: top.TotalValue,
		})
	}

	if f, ok := trendFinding(periods); ok {
		findings = append(findings, f)
	}

	if len(segments) > 0 {
		findings = append(findings, tierSummary(segments))
	}

	return findings, stats(categories, periods)
}

// trendFinding compares the two most recent period buckets. With fewer than
// two periods there is no trend to report.
func trendFinding(periods []core.Bucket) (core.Finding, bool) {
	if len(periods) < 2 {
		return core.Finding{}, false
	}
	ordered := ByPeriodAscending(periods)
	prev := ordered[len(ordered)-2]
	latest := ordered[len(ordered)-1]

	trend := core.TrendFlat
	switch {
	case latest.TotalValue > prev.TotalValue:
		trend = core.TrendUp
	case latest.TotalValue < prev.TotalValue:
		trend = core.TrendDown
	}

	var deltaPct float64
	if prev.TotalValue != 0 {
		deltaPct = (latest.TotalValue - prev.TotalValue) / prev.TotalValue * 100
	}

	return core.Finding{
		Kind:     core.FindingTrend,
		Label:    latest.Period.Key(),
		Value:    latest.TotalValue,
		Trend:    trend,
		DeltaPct: deltaPct,
	}, true
}

// tierSummary counts businesses per tier and names the highest-spend
// members of each as representatives, in fixed HIGH/MEDIUM/LOW order.
func tierSummary(segments map[string]core.Segment) core.Finding {
	byTier := make(map[core.Tier][]core.Profile)
	for _, seg := range segments {
		byTier[seg.Tier] = append(byTier[seg.Tier], seg.Profile)
	}

	summary := core.Finding{Kind: core.FindingTierSummary}
	for _, tier := range []core.Tier{core.TierHigh, core.TierMedium, core.TierLow} {
		members := byTier[tier]
		sort.Slice(members, func(i, j int) bool {
			if members[i].TotalSpend != members[j].TotalSpend {
				return members[i].TotalSpend > members[j].TotalSpend
			}
			return members[i].BusinessID < members[j].BusinessID
		})
		reps := make([]string, 0, maxRepresentatives)
		for i, m := range members {
			if i == maxRepresentatives {
				break
			}
			reps = append(reps, m.BusinessID)
		}
		summary.Tiers = append(summary.Tiers, core.TierStat{
			Tier:            tier,
			Count:           len(members),
			Representatives: reps,
		})
	}
	return summary
}

// stats computes the run-level highlights from the category and period views.
func stats(categories, periods []core.Bucket) core.Stats {
	var s core.Stats
	for _, b := range categories {
		s.TotalValue += b.TotalValue
	}
	s.Periods = len(periods)
	if len(periods) == 0 {
		return s
	}
	var sum float64
	for _, b := range periods {
		sum += b.TotalValue
		if b.TotalValue > s.PeakValue || s.PeakPeriod.IsZero() {
			s.PeakValue = b.TotalValue
			s.PeakPeriod = b.Period
		}
	}
	s.AvgPeriodValue = sum / float64(len(periods))
	return s
}
