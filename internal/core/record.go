package core

import (
	"errors"
	"sort"
)

// Column names of the input file. They are matched exactly.
const (
	ColumnCategory = "Category"
	ColumnWeight   = "Weight (lbs)"
	ColumnYear     = "Year"
)

type (
	// RawRecord is a row as read from a source, before any coercion.
	RawRecord struct {
		Line     int // 1-based line in the source; the header is line 1
		Category string
		Weight   string
		Year     string
	}

	// Record is a validated measurement that survived cleaning.
	Record struct {
		Year     int
		Category string
		Weight   float64
	}

	// Key identifies an aggregate cell.
	Key struct {
		Year     int
		Category string
	}

	// Cell is the summed weight for one (year, category) pair.
	Cell struct {
		Year     int     `json:"year"`
		Category string  `json:"category"`
		Weight   float64 `json:"weight"`
	}
)

var (
	ErrMissingColumn   = errors.New("missing required column")
	ErrMissingCategory = errors.New("missing category")
	ErrMissingWeight   = errors.New("missing weight")
	ErrInvalidWeight   = errors.New("invalid weight")
	ErrNegativeWeight  = errors.New("negative weight")
	ErrMissingYear     = errors.New("missing year")
	ErrInvalidYear     = errors.New("invalid year")
	ErrEmptySource     = errors.New("source has no header row")
)

// Key returns the aggregate key of the record.
func (r Record) Key() Key {
	return Key{Year: r.Year, Category: r.Category}
}

// Categories returns the distinct categories of records, sorted.
func Categories(records []Record) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	sort.Strings(out)
	return out
}
