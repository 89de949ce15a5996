// Package backend selects and constructs the row source a binary runs
// against, based on configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"mauzo/internal/source"
	"mauzo/internal/source/google"
	"mauzo/internal/source/memory"
)

// Type names a supported row-source backend.
type Type string

const (
	CSVBackend    Type = "csv"
	ExcelBackend  Type = "excel"
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
)

// IsValid reports whether the type is a known backend.
func (t Type) IsValid() bool {
	switch t {
	case CSVBackend, ExcelBackend, SheetsBackend, MemoryBackend:
		return true
	}
	return false
}

// Config carries what the factory needs to build a source.
type Config struct {
	Type  Type
	Path  string // csv and excel
	Sheet string // excel only; empty means first sheet
}

// Factory builds row sources from configuration.
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a factory. A nil logger falls back to slog.Default.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateSource constructs the row source described by config.
func (f *Factory) CreateSource(ctx context.Context, config Config) (source.RowSource, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid source type: %s", config.Type)
	}

	switch config.Type {
	case CSVBackend:
		if config.Path == "" {
			return nil, fmt.Errorf("csv source requires a path")
		}
		f.logger.Info("Initialized CSV source", "path", config.Path)
		return source.NewCSV(config.Path), nil
	case ExcelBackend:
		if config.Path == "" {
			return nil, fmt.Errorf("excel source requires a path")
		}
		f.logger.Info("Initialized Excel source", "path", config.Path, "sheet", config.Sheet)
		return source.NewExcel(config.Path, config.Sheet), nil
	case SheetsBackend:
		cli, err := google.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets source: %w", err)
		}
		f.logger.Info("Initialized Google Sheets source")
		return cli, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory source")
		return memory.New(nil), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", config.Type)
	}
}
