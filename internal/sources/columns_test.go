package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastedash/internal/core"
)

func TestColumnIndex(t *testing.T) {
	cols, err := ColumnIndex([]string{"\ufeffYear", "Site", "Category", "Weight (lbs)"})
	require.NoError(t, err)
	assert.Equal(t, Columns{Category: 2, Weight: 3, Year: 0}, cols)
}

func TestColumnIndexIsCaseSensitive(t *testing.T) {
	_, err := ColumnIndex([]string{"category", "Weight (lbs)", "Year"})
	require.ErrorIs(t, err, core.ErrMissingColumn)
	assert.Contains(t, err.Error(), "Category")

	_, err = ColumnIndex([]string{"Category", "Weight", "YEAR"})
	require.ErrorIs(t, err, core.ErrMissingColumn)
	assert.Contains(t, err.Error(), "Weight (lbs), Year")
}

func TestColumnIndexRejectsPaddedNames(t *testing.T) {
	_, err := ColumnIndex([]string{" Category", "Weight (lbs)", "Year "})
	require.ErrorIs(t, err, core.ErrMissingColumn)
	assert.Contains(t, err.Error(), "Category, Year")

	_, err = ColumnIndex([]string{"Category", "Weight (lbs)", "Year", "\ufeffYear"})
	require.NoError(t, err, "a mark outside the first cell is not stripped but the real column is found")
}

func TestColumnsRowShortRow(t *testing.T) {
	cols := Columns{Category: 0, Weight: 1, Year: 2}
	got := cols.Row(7, []string{"Paper"})
	assert.Equal(t, core.RawRecord{Line: 7, Category: "Paper"}, got)
}
