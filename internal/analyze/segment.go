package analyze

import (
	"math"
	"sort"
	"time"

	"mauzo/internal/core"
)

// Segment builds one behavior profile per business and assigns a value tier.
// Recency is measured in days against the dataset's latest transaction date,
// not the wall clock, so a rerun on the same input is identical. Empty input
// yields an empty map.
func Segment(rows []core.Transaction) map[string]core.Segment {
	profiles := buildProfiles(rows)
	tiers := assignTiers(profiles)

	out := make(map[string]core.Segment, len(profiles))
	for _, p := range profiles {
		out[p.BusinessID] = core.Segment{Profile: p, Tier: tiers[p.BusinessID]}
	}
	return out
}

// buildProfiles computes spend, count, mean and recency per business in a
// single pass over the cleaned table.
func buildProfiles(rows []core.Transaction) []core.Profile {
	byBusiness := make(map[string]*core.Profile)
	var maxDate time.Time
	for _, row := range rows {
		p, ok := byBusiness[row.BusinessID]
		if !ok {
			p = &core.Profile{BusinessID: row.BusinessID}
			byBusiness[row.BusinessID] = p
		}
		p.TotalSpend += row.TotalValue
		p.Transactions++
		if row.Date.After(p.LastPurchase) {
			p.LastPurchase = row.Date
		}
		if row.Date.After(maxDate) {
			maxDate = row.Date
		}
	}

	profiles := make([]core.Profile, 0, len(byBusiness))
	for _, p := range byBusiness {
		p.AvgValue = p.TotalSpend / float64(p.Transactions)
		p.RecencyDays = int(maxDate.Sub(p.LastPurchase).Hours() / 24)
		profiles = append(profiles, *p)
	}
	return profiles
}

// assignTiers ranks profiles by total spend descending and slices the
// ranking into thirds: the top third (rounded, minimum 1) is HIGH, the
// bottom third LOW, the remainder MEDIUM. Ties at any boundary resolve by
// ascending business id. With fewer than 3 businesses the slices collapse
// naturally: one business is HIGH only, two are HIGH and LOW.
func assignTiers(profiles []core.Profile) map[string]core.Tier {
	n := len(profiles)
	tiers := make(map[string]core.Tier, n)
	if n == 0 {
		return tiers
	}

	ranked := append([]core.Profile(nil), profiles...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalSpend != ranked[j].TotalSpend {
			return ranked[i].TotalSpend > ranked[j].TotalSpend
		}
		return ranked[i].BusinessID < ranked[j].BusinessID
	})

	third := int(math.Round(float64(n) / 3.0))
	if third < 1 {
		third = 1
	}
	lowStart := n - third
	if lowStart < third {
		lowStart = third // LOW never overlaps HIGH
	}

	for i, p := range ranked {
		switch {
		case i < third:
			tiers[p.BusinessID] = core.TierHigh
		case i >= lowStart:
			tiers[p.BusinessID] = core.TierLow
		default:
			tiers[p.BusinessID] = core.TierMedium
		}
	}
	return tiers
}
