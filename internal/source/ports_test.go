package source

import (
	"errors"
	"testing"
)

func TestFromTable(t *testing.T) {
	rows := [][]string{
		{"ANONYMIZED BUSINESS", "ANONYMIZED CATEGORY", "QUANTITY", "UNIT PRICE", "DATE"},
		{" biz-1 ", "Food", "2", "10.5", "2025-01-15"},
	}

	records, err := FromTable(rows)
	if err != nil {
		t.Fatalf("FromTable: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	// Cells come back trimmed
	if records[0].BusinessID != "biz-1" {
		t.Errorf("BusinessID = %q, want %q", records[0].BusinessID, "biz-1")
	}
}

func TestFromTableEmpty(t *testing.T) {
	if _, err := FromTable(nil); !errors.Is(err, ErrEmptySource) {
		t.Errorf("FromTable(nil) = %v, want ErrEmptySource", err)
	}
}

func TestResolveHeaderColumnOrder(t *testing.T) {
	// Column positions must follow the header, not a fixed layout.
	rows := [][]string{
		{"DATE", "UNIT PRICE", "QUANTITY", "ANONYMIZED CATEGORY", "ANONYMIZED BUSINESS"},
		{"2025-01-15", "10.5", "2", "Food", "biz-1"},
	}

	records, err := FromTable(rows)
	if err != nil {
		t.Fatalf("FromTable: %v", err)
	}
	r := records[0]
	if r.BusinessID != "biz-1" || r.Category != "Food" || r.Quantity != "2" ||
		r.UnitValue != "10.5" || r.Date != "2025-01-15" {
		t.Errorf("columns misassigned: %+v", r)
	}
}
