// Package analyze implements the numerical core of the pipeline: grouped
// aggregation over the cleaned table, customer segmentation, and insight
// synthesis. Every function is a pure transformation of its inputs; running
// twice on the same rows yields identical output.
package analyze

import (
	"fmt"
	"sort"

	"mauzo/internal/core"
)

// Aggregate groups the cleaned rows by the requested dimension set and sums
// quantity and total value per bucket. Every input row lands in exactly one
// bucket. Buckets come back sorted by total value descending, ties broken by
// ascending composite key so reruns are stable.
func Aggregate(rows []core.Transaction, dims ...core.Dimension) ([]core.Bucket, error) {
	set, err := dimensionSet(dims)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []core.Bucket{}, nil
	}

	buckets := make(map[string]*core.Bucket)
	for _, row := range rows {
		proto := bucketFor(row, set)
		key := proto.Key()
		b, ok := buckets[key]
		if !ok {
			b = &proto
			buckets[key] = b
		}
		b.Quantity += row.Quantity
		b.TotalValue += row.TotalValue
		b.Count++
	}

	out := make([]core.Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalValue != out[j].TotalValue {
			return out[i].TotalValue > out[j].TotalValue
		}
		return out[i].Key() < out[j].Key()
	})
	return out, nil
}

// dimensionSet validates and dedupes the requested dimensions.
func dimensionSet(dims []core.Dimension) (map[core.Dimension]bool, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("aggregate: at least one dimension required")
	}
	set := make(map[core.Dimension]bool, len(dims))
	for _, d := range dims {
		if !d.Valid() {
			return nil, fmt.Errorf("aggregate: unknown dimension %q", d)
		}
		set[d] = true
	}
	return set, nil
}

// bucketFor builds the empty bucket a row belongs to, carrying only the key
// fields named by the dimension set.
func bucketFor(row core.Transaction, set map[core.Dimension]bool) core.Bucket {
	var b core.Bucket
	for _, d := range core.CanonicalDimensions {
		if !set[d] {
			continue
		}
		switch d {
		case core.ByCategory:
			b.Category = row.Category
		case core.ByBusiness:
			b.BusinessID = row.BusinessID
		case core.ByPeriod:
			b.Period = row.Period
		}
	}
	return b
}

// ByPeriodAscending reorders a period-keyed bucket slice chronologically.
// The synthesizer uses it to find the two most recent periods.
func ByPeriodAscending(buckets []core.Bucket) []core.Bucket {
	out := append([]core.Bucket(nil), buckets...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period.Before(out[j].Period)
	})
	return out
}
