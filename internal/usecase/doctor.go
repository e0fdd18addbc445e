package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"skillmatch/internal/domain"
	"skillmatch/internal/port"
)

// DataFilePatterns matches every file a category store writes, including
// temporaries left behind by an interrupted save.
var DataFilePatterns = []string{"**/*.f32", "**/*.jsonl", "**/*.tmp-*"}

// Issue is one problem found by Doctor.
type Issue struct {
	Category domain.Category `json:"category,omitempty"`
	Path     string          `json:"path,omitempty"`
	Problem  string          `json:"problem"`
}

// DoctorReport summarizes a data directory check.
type DoctorReport struct {
	Categories int      `json:"categories"`
	Healthy    int      `json:"healthy"`
	Issues     []Issue  `json:"issues,omitempty"`
	Stray      []string `json:"stray,omitempty"`
}

// Doctor checks category files for partial writes, corruption and leftovers.
type Doctor struct {
	walker port.FileWalker
	store  port.CategoryStore
	files  map[domain.Category][]string
}

// NewDoctor creates a doctor over the configured category files.
func NewDoctor(walker port.FileWalker, store port.CategoryStore, files map[domain.Category][]string) *Doctor {
	return &Doctor{walker: walker, store: store, files: files}
}

// Check inspects every configured category and scans dataDir for files no
// category owns.
func (d *Doctor) Check(ctx context.Context, dataDir string) (*DoctorReport, error) {
	report := &DoctorReport{Categories: len(d.files)}
	owned := make(map[string]bool)

	cats := make([]domain.Category, 0, len(d.files))
	for c := range d.files {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	for _, c := range cats {
		var missing []string
		for _, p := range d.files[c] {
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, err
			}
			owned[abs] = true
			if _, err := os.Stat(p); os.IsNotExist(err) {
				missing = append(missing, p)
			}
		}

		switch {
		case len(missing) == len(d.files[c]):
			// never written
			report.Healthy++
			continue
		case len(missing) > 0:
			for _, p := range missing {
				report.Issues = append(report.Issues, Issue{Category: c, Path: p, Problem: "missing file"})
			}
			continue
		}

		if _, err := d.store.Load(ctx, c); err != nil {
			report.Issues = append(report.Issues, Issue{Category: c, Problem: err.Error()})
			continue
		}
		report.Healthy++
	}

	found, err := d.walker.Walk(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dataDir, err)
	}
	for _, f := range found {
		if !owned[f.Path] {
			report.Stray = append(report.Stray, f.Path)
		}
	}
	sort.Strings(report.Stray)

	return report, nil
}

// OK reports whether the check found nothing to fix.
func (r *DoctorReport) OK() bool {
	return len(r.Issues) == 0 && len(r.Stray) == 0
}
