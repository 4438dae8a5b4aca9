// Package report writes dashboard snapshots to disk.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"wastedash/internal/aggregate"
	"wastedash/internal/core"
	"wastedash/internal/loader"
	"wastedash/internal/render"
	"wastedash/internal/views"
)

const (
	WorkbookFile = "dashboard.xlsx"
	ManifestFile = "manifest.json"
)

// Manifest describes a written snapshot.
type Manifest struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	Fingerprint string      `json:"fingerprint"`
	Filter      core.Filter `json:"filter"`
	CreatedAt   time.Time   `json:"created_at"`
	Files       []string    `json:"files"`
	Kept        int         `json:"kept"`
	Dropped     int         `json:"dropped"`
}

// Request selects what to snapshot. An empty Categories list with
// AllCategories set means every category of the dataset.
type Request struct {
	ID            string
	Years         core.YearRange
	Categories    []string
	AllCategories bool
}

// ErrInvalidID is returned for ids that are not a single directory name.
var ErrInvalidID = errors.New("invalid snapshot id")

// ValidateID checks that id names exactly one directory below the base
// directory.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: id is required", ErrInvalidID)
	case id == "." || id == "..", strings.ContainsAny(id, `/\`), filepath.Base(id) != id:
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Writer renders snapshots under a base directory.
type Writer struct {
	baseDir string
	axis    core.YearRange
	now     func() time.Time
}

func NewWriter(baseDir string, axis core.YearRange) *Writer {
	return &Writer{baseDir: baseDir, axis: axis, now: time.Now}
}

// Write builds the dashboard for req from ds and writes the workbook and
// every chart into baseDir/<id>/. Files are rendered concurrently; the first
// failure cancels the rest.
func (w *Writer) Write(ctx context.Context, ds *loader.Dataset, req Request) (Manifest, error) {
	if err := ValidateID(req.ID); err != nil {
		return Manifest{}, err
	}
	dir := filepath.Join(w.baseDir, req.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create snapshot dir: %w", err)
	}

	cats := req.Categories
	if req.AllCategories {
		cats = ds.Categories
	}
	filter := core.NewFilter(req.Years.Clamp(w.axis), cats)
	d := views.Build(aggregate.Build(ds.Records, filter), w.axis)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeFile(gctx, filepath.Join(dir, WorkbookFile), func(f *os.File) error {
			return render.WriteWorkbook(f, d, ds.Summary)
		})
	})
	for _, name := range render.ChartNames {
		g.Go(func() error {
			return writeFile(gctx, filepath.Join(dir, name+".png"), func(f *os.File) error {
				return render.WritePNG(f, d, name, render.DefaultWidth, render.DefaultHeight)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return Manifest{}, err
	}

	files := []string{WorkbookFile}
	for _, name := range render.ChartNames {
		files = append(files, name+".png")
	}
	sort.Strings(files)

	m := Manifest{
		ID:          req.ID,
		Source:      ds.Source,
		Fingerprint: ds.Fingerprint,
		Filter:      filter,
		CreatedAt:   w.now().UTC(),
		Files:       files,
		Kept:        ds.Summary.Kept,
		Dropped:     ds.Summary.Dropped,
	}
	err := writeFile(ctx, filepath.Join(dir, ManifestFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
	if err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// writeFile writes through a temporary file and renames it into place.
func writeFile(ctx context.Context, path string, fill func(*os.File) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
