package source

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"mauzo/internal/core"
)

// ExcelSource loads rows from one sheet of an .xlsx workbook, the format the
// sales dataset is distributed in.
type ExcelSource struct {
	Path  string
	Sheet string // empty means the workbook's first sheet
}

// NewExcel creates a source backed by a workbook sheet.
func NewExcel(path, sheet string) *ExcelSource {
	return &ExcelSource{Path: path, Sheet: sheet}
}

// Load implements RowSource.
func (s *ExcelSource) Load(ctx context.Context) ([]core.RawRecord, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.Path, err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, ErrEmptySource
		}
		sheet = list[0]
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, s.Path, err)
	}

	records, err := FromTable(rows)
	if err != nil {
		return nil, fmt.Errorf("workbook %s sheet %q: %w", s.Path, sheet, err)
	}
	return records, nil
}
