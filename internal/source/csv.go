package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"mauzo/internal/core"
)

// CSVSource loads rows from a comma-separated file with a header row.
type CSVSource struct {
	Path string
}

// NewCSV creates a source backed by the CSV file at path.
func NewCSV(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Load implements RowSource.
func (s *CSVSource) Load(ctx context.Context) ([]core.RawRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", s.Path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // short rows are a row-level concern

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header %s: %w", s.Path, err)
	}
	cols, err := resolveHeader(header)
	if err != nil {
		return nil, fmt.Errorf("csv %s: %w", s.Path, err)
	}

	var records []core.RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %s: %w", s.Path, err)
		}
		records = append(records, recordFromRow(row, cols))
	}
	return records, nil
}
