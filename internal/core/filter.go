package core

import (
	"strconv"
	"strings"
)

// YearRange is an inclusive range of years. A range with Min > Max is empty.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Empty reports whether the range contains no years.
func (r YearRange) Empty() bool {
	return r.Min > r.Max
}

// Len returns the number of years in the range.
func (r YearRange) Len() int {
	if r.Empty() {
		return 0
	}
	return r.Max - r.Min + 1
}

// Contains reports whether y lies within the range.
func (r YearRange) Contains(y int) bool {
	return y >= r.Min && y <= r.Max
}

// Years lists every year in the range in ascending order.
func (r YearRange) Years() []int {
	out := make([]int, 0, r.Len())
	for y := r.Min; y <= r.Max; y++ {
		out = append(out, y)
	}
	return out
}

// Clamp restricts the range to bounds. The result may be empty.
func (r YearRange) Clamp(bounds YearRange) YearRange {
	if r.Min < bounds.Min {
		r.Min = bounds.Min
	}
	if r.Max > bounds.Max {
		r.Max = bounds.Max
	}
	return r
}

// Filter is the user selection applied to the aggregate.
type Filter struct {
	Years      YearRange `json:"years"`
	Categories []string  `json:"categories"`
}

// NewFilter builds a filter with the category selection deduplicated.
// Order of first appearance is preserved; empty labels are ignored.
func NewFilter(years YearRange, categories []string) Filter {
	return Filter{Years: years, Categories: dedupe(categories)}
}

// CacheKey is a stable textual form of the filter, used for view caching.
// Categories are quoted so labels containing the separator cannot collide
// with a longer selection.
func (f Filter) CacheKey() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(f.Years.Min))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(f.Years.Max))
	for _, c := range f.Categories {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(c))
	}
	return b.String()
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
