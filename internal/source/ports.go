// Package source loads raw transaction rows from external storage formats.
//
// Sources own the structural contract of the pipeline: a load either yields
// every row of a well-formed table or fails outright (missing columns,
// unreadable file). Per-cell problems are deliberately passed through as
// strings for the normalizer to count.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"mauzo/internal/core"
)

// RowSource is the inbound port every loader implements.
type RowSource interface {
	// Load reads the whole table and returns its rows in source order.
	Load(ctx context.Context) ([]core.RawRecord, error)
}

var (
	// ErrMissingColumns marks a table that lacks one or more required headers.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrEmptySource marks a table with no header row at all.
	ErrEmptySource = errors.New("source has no header row")
)

// FromTable converts an in-memory table (header row first) into raw
// records. Shared by the loaders that read whole sheets at once.
func FromTable(rows [][]string) ([]core.RawRecord, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySource
	}
	cols, err := resolveHeader(rows[0])
	if err != nil {
		return nil, err
	}
	records := make([]core.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, recordFromRow(row, cols))
	}
	return records, nil
}

// columnAliases maps each canonical column to the header spellings accepted
// for it. The first group of spellings matches the original dataset export,
// the second the snake_case interchange form.
var columnAliases = map[string][]string{
	"business": {"ANONYMIZED BUSINESS", "BUSINESS_ID", "BUSINESS"},
	"category": {"ANONYMIZED CATEGORY", "CATEGORY"},
	"quantity": {"QUANTITY"},
	"unit":     {"UNIT PRICE", "UNIT_VALUE", "UNIT VALUE"},
	"date":     {"DATE", "TRANSACTION_DATE"},
}

// columnIndex holds the resolved position of each canonical column.
type columnIndex struct {
	business int
	category int
	quantity int
	unit     int
	date     int
}

// resolveHeader maps a header row to column positions. All five canonical
// columns must be present or the whole load fails.
func resolveHeader(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(columnAliases))
	for name := range columnAliases {
		positions[name] = -1
	}
	for i, cell := range header {
		cell = strings.ToUpper(strings.TrimSpace(cell))
		for name, aliases := range columnAliases {
			if positions[name] != -1 {
				continue
			}
			for _, alias := range aliases {
				if cell == alias {
					positions[name] = i
					break
				}
			}
		}
	}

	var missing []string
	for name, idx := range positions {
		if idx == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return columnIndex{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return columnIndex{
		business: positions["business"],
		category: positions["category"],
		quantity: positions["quantity"],
		unit:     positions["unit"],
		date:     positions["date"],
	}, nil
}

// recordFromRow picks the resolved columns out of one data row. Short rows
// yield empty cells, which the normalizer counts as invalid.
func recordFromRow(row []string, cols columnIndex) core.RawRecord {
	return core.RawRecord{
		BusinessID: safeGet(row, cols.business),
		Category:   safeGet(row, cols.category),
		Quantity:   safeGet(row, cols.quantity),
		UnitValue:  safeGet(row, cols.unit),
		Date:       safeGet(row, cols.date),
	}
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
