// Package normalize turns raw tabular rows into validated transactions.
//
// Per-row problems never abort a run: each dropped row is counted by reason
// in the discard report so the caller can judge data quality. Structural
// problems (missing columns, unreadable files) are the source loader's to
// report and never reach this package.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"mauzo/internal/core"
)

// UncategorizedLabel stands in for rows whose category cell is blank, so
// every cleaned row lands in exactly one category bucket.
const UncategorizedLabel = "Uncategorized"

// dateLayouts are tried in order when coercing the transaction date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// Normalize validates and cleans the raw row set. Exact duplicates are
// removed before validation and counted separately; every surviving row has
// its total value recomputed and its period key derived. The cleaned slice
// preserves source order.
func Normalize(raws []core.RawRecord) ([]core.Transaction, core.DiscardReport) {
	var report core.DiscardReport

	deduped := dedupe(raws, &report)

	cleaned := make([]core.Transaction, 0, len(deduped))
	for _, raw := range deduped {
		tx, ok := coerce(raw, &report)
		if !ok {
			continue
		}
		cleaned = append(cleaned, tx)
	}
	return cleaned, report
}

// dedupe removes rows identical on all fields, keeping the first occurrence.
func dedupe(raws []core.RawRecord, report *core.DiscardReport) []core.RawRecord {
	seen := make(map[core.RawRecord]struct{}, len(raws))
	out := make([]core.RawRecord, 0, len(raws))
	for _, raw := range raws {
		if _, ok := seen[raw]; ok {
			report.Duplicates++
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}
	return out
}

// coerce converts one raw row into a transaction, counting the first
// validation failure it hits. Check order matches the discard taxonomy:
// date, business id, quantity, unit value.
func coerce(raw core.RawRecord, report *core.DiscardReport) (core.Transaction, bool) {
	date, ok := parseDate(raw.Date)
	if !ok {
		report.InvalidDates++
		return core.Transaction{}, false
	}

	business := strings.TrimSpace(raw.BusinessID)
	if business == "" {
		report.MissingBusiness++
		return core.Transaction{}, false
	}

	quantity, ok := parseAmount(raw.Quantity)
	if !ok || quantity < 0 {
		report.InvalidQuantity++
		return core.Transaction{}, false
	}

	unitValue, ok := parseAmount(raw.UnitValue)
	if !ok || unitValue < 0 {
		report.InvalidUnitValue++
		return core.Transaction{}, false
	}

	category := strings.TrimSpace(raw.Category)
	if category == "" {
		category = UncategorizedLabel
	}

	return core.Transaction{
		BusinessID: business,
		Category:   category,
		Quantity:   quantity,
		UnitValue:  unitValue,
		TotalValue: quantity * unitValue,
		Date:       date,
		Period:     core.PeriodOf(date),
	}, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// Normalize decimal comma
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
