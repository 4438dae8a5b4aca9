package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastedash/internal/core"
)

func sampleRecords() []core.Record {
	return []core.Record{
		{Year: 2020, Category: "Paper", Weight: 10},
		{Year: 2020, Category: "Paper", Weight: 5},
		{Year: 2021, Category: "Glass", Weight: 3},
	}
}

func TestBuildWorkedExample(t *testing.T) {
	f := core.NewFilter(core.YearRange{Min: 2020, Max: 2021}, []string{"Paper", "Glass"})

	table := Build(sampleRecords(), f)

	assert.Equal(t, []core.Cell{
		{Year: 2020, Category: "Paper", Weight: 15},
		{Year: 2020, Category: "Glass", Weight: 0},
		{Year: 2021, Category: "Paper", Weight: 0},
		{Year: 2021, Category: "Glass", Weight: 3},
	}, table.Cells)
	assert.Equal(t, 18.0, table.Total())
}

func TestBuildCompleteness(t *testing.T) {
	records := []core.Record{
		{Year: 2005, Category: "Paper", Weight: 1},
		{Year: 2010, Category: "Glass", Weight: 2},
		{Year: 2025, Category: "Compost", Weight: 3},
		{Year: 2030, Category: "Paper", Weight: 4},
	}
	tests := []struct {
		name  string
		years core.YearRange
		cats  []string
	}{
		{"full axis", core.YearRange{Min: 2005, Max: 2025}, []string{"Paper", "Glass", "Compost"}},
		{"single year", core.YearRange{Min: 2010, Max: 2010}, []string{"Glass"}},
		{"unknown category", core.YearRange{Min: 2008, Max: 2012}, []string{"Metal", "Paper"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Build(records, core.NewFilter(tt.years, tt.cats))
			require.Len(t, table.Cells, tt.years.Len()*len(tt.cats))

			seen := make(map[core.Key]bool)
			for _, c := range table.Cells {
				k := core.Key{Year: c.Year, Category: c.Category}
				assert.False(t, seen[k], "duplicate cell %v", k)
				seen[k] = true
				assert.True(t, tt.years.Contains(c.Year))
				assert.Contains(t, tt.cats, c.Category)
			}
		})
	}
}

func TestBuildZeroFill(t *testing.T) {
	table := Build(sampleRecords(), core.NewFilter(core.YearRange{Min: 2019, Max: 2019}, []string{"Paper"}))
	require.Len(t, table.Cells, 1)
	assert.Equal(t, core.Cell{Year: 2019, Category: "Paper", Weight: 0}, table.Cells[0])
}

func TestBuildConservesCategoryTotals(t *testing.T) {
	records := []core.Record{
		{Year: 2018, Category: "Paper", Weight: 2.5},
		{Year: 2019, Category: "Paper", Weight: 4},
		{Year: 2020, Category: "Paper", Weight: 1},
		{Year: 2019, Category: "Glass", Weight: 7},
		{Year: 2024, Category: "Glass", Weight: 9},
	}
	years := core.YearRange{Min: 2019, Max: 2022}
	table := Build(records, core.NewFilter(years, []string{"Paper", "Glass"}))

	for _, cat := range []string{"Paper", "Glass"} {
		var want, got float64
		for _, r := range records {
			if r.Category == cat && years.Contains(r.Year) {
				want += r.Weight
			}
		}
		for _, c := range table.Cells {
			if c.Category == cat {
				got += c.Weight
			}
		}
		assert.InDelta(t, want, got, 1e-9, cat)
	}
}

func TestBuildExcludesUnselectedCategories(t *testing.T) {
	table := Build(sampleRecords(), core.NewFilter(core.YearRange{Min: 2020, Max: 2021}, []string{"Glass"}))
	for _, c := range table.Cells {
		assert.Equal(t, "Glass", c.Category)
	}
	assert.Equal(t, 3.0, table.Total())
}

func TestBuildEmptySelection(t *testing.T) {
	for _, years := range []core.YearRange{
		{Min: 2005, Max: 2025},
		{Min: 2020, Max: 2020},
	} {
		table := Build(sampleRecords(), core.NewFilter(years, nil))
		assert.True(t, table.Empty())
		assert.NotNil(t, table.Cells)
	}
}

func TestBuildInvertedRange(t *testing.T) {
	table := Build(sampleRecords(), core.NewFilter(core.YearRange{Min: 2021, Max: 2020}, []string{"Paper"}))
	assert.True(t, table.Empty())
}

func TestReindexCollapsesDuplicateCategories(t *testing.T) {
	cells := Reindex(Group(sampleRecords()), core.YearRange{Min: 2020, Max: 2020}, []string{"Paper", "Paper"})
	assert.Equal(t, []core.Cell{{Year: 2020, Category: "Paper", Weight: 15}}, cells)
}

func TestGroup(t *testing.T) {
	got := Group(sampleRecords())
	assert.Equal(t, map[core.Key]float64{
		{Year: 2020, Category: "Paper"}: 15,
		{Year: 2021, Category: "Glass"}: 3,
	}, got)
}
