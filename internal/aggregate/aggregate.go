// Package aggregate sums clean records by (year, category) and expands the
// result onto the dense grid selected by a filter.
package aggregate

import (
	"wastedash/internal/core"
)

// Table is the reindexed aggregate for one filter. Cells are ordered
// year-major, then by category in selection order.
type Table struct {
	Filter core.Filter `json:"filter"`
	Cells  []core.Cell `json:"cells"`
}

// Len returns the number of cells.
func (t Table) Len() int { return len(t.Cells) }

// Empty reports whether the table has no cells.
func (t Table) Empty() bool { return len(t.Cells) == 0 }

// Total returns the sum of every cell weight.
func (t Table) Total() float64 {
	var sum float64
	for _, c := range t.Cells {
		sum += c.Weight
	}
	return sum
}

// Group sums record weights per (year, category).
func Group(records []core.Record) map[core.Key]float64 {
	grouped := make(map[core.Key]float64)
	for _, r := range records {
		grouped[r.Key()] += r.Weight
	}
	return grouped
}

// Reindex expands grouped onto years × categories. Keys missing from grouped
// get a zero weight; keys outside the grid are dropped. Duplicate categories
// are collapsed so each pair appears once.
func Reindex(grouped map[core.Key]float64, years core.YearRange, categories []string) []core.Cell {
	cats := uniqueCategories(categories)
	if years.Empty() || len(cats) == 0 {
		return []core.Cell{}
	}
	cells := make([]core.Cell, 0, years.Len()*len(cats))
	for _, y := range years.Years() {
		for _, c := range cats {
			cells = append(cells, core.Cell{
				Year:     y,
				Category: c,
				Weight:   grouped[core.Key{Year: y, Category: c}],
			})
		}
	}
	return cells
}

// Build groups records and reindexes them against the filter.
func Build(records []core.Record, f core.Filter) Table {
	return Table{
		Filter: f,
		Cells:  Reindex(Group(records), f.Years, f.Categories),
	}
}

func uniqueCategories(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
