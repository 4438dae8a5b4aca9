// Package views derives the presentation projections of an aggregate table.
// Every function here is pure: it reads the table and returns new values.
package views

import (
	"sort"

	"wastedash/internal/aggregate"
	"wastedash/internal/core"
)

// Palette is the fixed category color cycle.
var Palette = []string{"#28ab9d", "#ff7e47", "#c7d86e", "#f37fb9"}

// MaxPointSize is the size given to the heaviest point of the magnitude view.
const MaxPointSize = 40.0

// View names accepted by the API and renderers.
const (
	ViewTotals  = "totals"
	ViewGrouped = "grouped"
	ViewTrend   = "trend"
	ViewPoints  = "points"
	ViewTable   = "table"
)

// Names lists every view in display order.
var Names = []string{ViewTotals, ViewGrouped, ViewTrend, ViewPoints, ViewTable}

type (
	// Total is the weight of one category across the filtered range.
	Total struct {
		Category string  `json:"category"`
		Weight   float64 `json:"weight"`
		Share    float64 `json:"share"`
		Color    string  `json:"color"`
	}

	// Series is one category plotted against the year axis. Values is aligned
	// with the axis; a nil entry marks a year outside the filtered range.
	Series struct {
		Category string     `json:"category"`
		Color    string     `json:"color"`
		Values   []*float64 `json:"values"`
	}

	// SeriesView is a discrete year axis plus one series per category.
	SeriesView struct {
		Axis   []int    `json:"axis"`
		Series []Series `json:"series"`
	}

	// Point is one (year, category) cell with a size proportional to weight.
	Point struct {
		Year     int     `json:"year"`
		Category string  `json:"category"`
		Weight   float64 `json:"weight"`
		Size     float64 `json:"size"`
		Color    string  `json:"color"`
	}

	// Dashboard bundles every view for one filter.
	Dashboard struct {
		Filter  core.Filter `json:"filter"`
		Axis    []int       `json:"axis"`
		Palette []string    `json:"palette"`
		Total   float64     `json:"total"`
		Totals  []Total     `json:"totals"`
		Grouped SeriesView  `json:"grouped"`
		Trend   SeriesView  `json:"trend"`
		Points  []Point     `json:"points"`
		Table   []core.Cell `json:"table"`
	}
)

// ColorFor returns the palette color for the i-th selected category.
func ColorFor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// Colors maps each selected category to its palette color.
func Colors(t aggregate.Table) map[string]string {
	out := make(map[string]string, len(t.Filter.Categories))
	for i, c := range t.Filter.Categories {
		out[c] = ColorFor(i)
	}
	return out
}

// CategoryTotals sums the table per category, sorted by category name.
func CategoryTotals(t aggregate.Table) []Total {
	colors := Colors(t)
	sums := make(map[string]float64)
	order := make([]string, 0)
	for _, c := range t.Cells {
		if _, ok := sums[c.Category]; !ok {
			order = append(order, c.Category)
		}
		sums[c.Category] += c.Weight
	}
	sort.Strings(order)

	grand := t.Total()
	out := make([]Total, 0, len(order))
	for _, cat := range order {
		share := 0.0
		if grand > 0 {
			share = sums[cat] / grand
		}
		out = append(out, Total{Category: cat, Weight: sums[cat], Share: share, Color: colors[cat]})
	}
	return out
}

// GroupedByYear lays the table out on the full year axis so labels stay
// stable across filter changes.
func GroupedByYear(t aggregate.Table, axis core.YearRange) SeriesView {
	return seriesOn(t, axis)
}

// Trend is the grouped data drawn as one line per category.
func Trend(t aggregate.Table, axis core.YearRange) SeriesView {
	return seriesOn(t, axis)
}

func seriesOn(t aggregate.Table, axis core.YearRange) SeriesView {
	years := axis.Years()
	index := make(map[int]int, len(years))
	for i, y := range years {
		index[y] = i
	}

	byCategory := make(map[string]*Series)
	series := make([]Series, 0, len(t.Filter.Categories))
	for i, cat := range t.Filter.Categories {
		series = append(series, Series{
			Category: cat,
			Color:    ColorFor(i),
			Values:   make([]*float64, len(years)),
		})
	}
	if t.Empty() {
		return SeriesView{Axis: years, Series: []Series{}}
	}
	for i := range series {
		byCategory[series[i].Category] = &series[i]
	}
	for _, c := range t.Cells {
		s, ok := byCategory[c.Category]
		if !ok {
			continue
		}
		i, ok := index[c.Year]
		if !ok {
			continue
		}
		w := c.Weight
		s.Values[i] = &w
	}
	return SeriesView{Axis: years, Series: series}
}

// Points returns one point per cell. The heaviest cell gets MaxPointSize;
// zero weights get size zero.
func Points(t aggregate.Table) []Point {
	colors := Colors(t)
	var heaviest float64
	for _, c := range t.Cells {
		if c.Weight > heaviest {
			heaviest = c.Weight
		}
	}
	out := make([]Point, 0, len(t.Cells))
	for _, c := range t.Cells {
		size := 0.0
		if heaviest > 0 {
			size = c.Weight / heaviest * MaxPointSize
		}
		out = append(out, Point{
			Year:     c.Year,
			Category: c.Category,
			Weight:   c.Weight,
			Size:     size,
			Color:    colors[c.Category],
		})
	}
	return out
}

// TableRows returns a copy of the filtered table cells.
func TableRows(t aggregate.Table) []core.Cell {
	out := make([]core.Cell, len(t.Cells))
	copy(out, t.Cells)
	return out
}

// Build derives every view from t.
func Build(t aggregate.Table, axis core.YearRange) Dashboard {
	grouped := GroupedByYear(t, axis)
	return Dashboard{
		Filter:  t.Filter,
		Axis:    grouped.Axis,
		Palette: Palette,
		Total:   t.Total(),
		Totals:  CategoryTotals(t),
		Grouped: grouped,
		Trend:   Trend(t, axis),
		Points:  Points(t),
		Table:   TableRows(t),
	}
}

// Select returns the named view of d, or false if name is unknown.
func (d Dashboard) Select(name string) (any, bool) {
	switch name {
	case ViewTotals:
		return d.Totals, true
	case ViewGrouped:
		return d.Grouped, true
	case ViewTrend:
		return d.Trend, true
	case ViewPoints:
		return d.Points, true
	case ViewTable:
		return d.Table, true
	default:
		return nil, false
	}
}
