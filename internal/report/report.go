// Package report renders the strategic-insight text reports for a run.
//
// This file implements the Strategy Pattern for report sections. Each
// section (overview, product strategy, customer retention, operational
// efficiency) has its own renderer that encapsulates how that part of the
// run result is written out.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"mauzo/internal/core"
)

// Options carries the knobs report sections read at render time.
type Options struct {
	// RecencyWindowDays is the inactivity threshold used by the customer
	// retention section.
	RecencyWindowDays int
}

// SectionRenderer is the strategy interface for one report section.
type SectionRenderer interface {
	// Render writes the section for the given run result.
	Render(w io.Writer, res core.RunResult, opts Options) error
}

type section struct {
	name     string
	renderer SectionRenderer
}

// sections maps section names to their renderers, in the order report files
// are written.
var sections = []section{
	{"insights_overview", OverviewSection{}},
	{"product_strategy", ProductStrategySection{}},
	{"customer_retention", CustomerRetentionSection{}},
	{"operational_efficiency", OperationalEfficiencySection{}},
}

// RegisterSection appends a custom section renderer. This supports extension
// without modifying the built-in set.
func RegisterSection(name string, renderer SectionRenderer) {
	sections = append(sections, section{name: name, renderer: renderer})
}

// Writer renders every registered section to text files under a directory.
type Writer struct {
	dir  string
	opts Options
}

func NewWriter(dir string, opts Options) *Writer {
	return &Writer{dir: dir, opts: opts}
}

// WriteAll renders all sections for the run and returns the written file
// paths. Each section lands in its own <name>.txt file.
func (w *Writer) WriteAll(ctx context.Context, res core.RunResult) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	paths := make([]string, 0, len(sections))
	for _, s := range sections {
		var buf bytes.Buffer
		if err := s.renderer.Render(&buf, res, w.opts); err != nil {
			return nil, fmt.Errorf("render section %s: %w", s.name, err)
		}

		path := filepath.Join(w.dir, s.name+".txt")
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("write section %s: %w", s.name, err)
		}
		paths = append(paths, path)
	}

	slog.InfoContext(ctx, "Strategic insight reports written",
		"dir", w.dir,
		"sections", len(paths))
	return paths, nil
}

// findingByKind returns the first finding of the given kind, if present.
func findingByKind(res core.RunResult, kind core.Kind) (core.Finding, bool) {
	for _, f := range res.Findings {
		if f.Kind == kind {
			return f, true
		}
	}
	return core.Finding{}, false
}
