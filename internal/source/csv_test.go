package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp csv: %v", err)
	}
	return path
}

func TestCSVSourceLoad(t *testing.T) {
	path := writeTempCSV(t, strings.Join([]string{
		"ANONYMIZED BUSINESS,ANONYMIZED CATEGORY,QUANTITY,UNIT PRICE,DATE",
		"biz-1,Food,2,10.5,2025-01-15",
		"biz-2,Drink,1,3,2025-01-16",
	}, "\n"))

	records, err := NewCSV(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	first := records[0]
	if first.BusinessID != "biz-1" || first.Category != "Food" ||
		first.Quantity != "2" || first.UnitValue != "10.5" || first.Date != "2025-01-15" {
		t.Errorf("unexpected first record: %+v", first)
	}
}

func TestCSVSourceHeaderAliases(t *testing.T) {
	// Lowercase and alternate column names must still resolve.
	path := writeTempCSV(t, strings.Join([]string{
		"business_id,category,quantity,unit_value,transaction_date",
		"biz-1,Food,2,10.5,2025-01-15",
	}, "\n"))

	records, err := NewCSV(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 || records[0].BusinessID != "biz-1" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestCSVSourceMissingColumns(t *testing.T) {
	path := writeTempCSV(t, strings.Join([]string{
		"ANONYMIZED BUSINESS,QUANTITY,DATE",
		"biz-1,2,2025-01-15",
	}, "\n"))

	_, err := NewCSV(path).Load(context.Background())
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("Load error = %v, want ErrMissingColumns", err)
	}
	// The message names what's missing so the operator can fix the file.
	if !strings.Contains(err.Error(), "category") || !strings.Contains(err.Error(), "unit") {
		t.Errorf("error does not name missing columns: %v", err)
	}
}

func TestCSVSourceEmptyFile(t *testing.T) {
	path := writeTempCSV(t, "")

	_, err := NewCSV(path).Load(context.Background())
	if !errors.Is(err, ErrEmptySource) {
		t.Fatalf("Load error = %v, want ErrEmptySource", err)
	}
}

func TestCSVSourceHeaderOnly(t *testing.T) {
	path := writeTempCSV(t, "ANONYMIZED BUSINESS,ANONYMIZED CATEGORY,QUANTITY,UNIT PRICE,DATE\n")

	records, err := NewCSV(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
}

func TestCSVSourceShortRows(t *testing.T) {
	// Ragged rows are padded with empty cells, not dropped; counting bad
	// rows is the normalizer's job.
	path := writeTempCSV(t, strings.Join([]string{
		"ANONYMIZED BUSINESS,ANONYMIZED CATEGORY,QUANTITY,UNIT PRICE,DATE",
		"biz-1,Food",
	}, "\n"))

	records, err := NewCSV(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Quantity != "" || records[0].Date != "" {
		t.Errorf("short row cells not empty: %+v", records[0])
	}
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := NewCSV(filepath.Join(t.TempDir(), "absent.csv")).Load(context.Background())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCSVSourceCancelledContext(t *testing.T) {
	path := writeTempCSV(t, strings.Join([]string{
		"ANONYMIZED BUSINESS,ANONYMIZED CATEGORY,QUANTITY,UNIT PRICE,DATE",
		"biz-1,Food,2,10.5,2025-01-15",
	}, "\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewCSV(path).Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Load error = %v, want context.Canceled", err)
	}
}
