package render

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"wastedash/internal/aggregate"
	"wastedash/internal/core"
	"wastedash/internal/views"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

var axis = core.YearRange{Min: 2005, Max: 2025}

func dashboard(categories []string) views.Dashboard {
	records := []core.Record{
		{Year: 2020, Category: "Paper", Weight: 10},
		{Year: 2020, Category: "Paper", Weight: 5},
		{Year: 2021, Category: "Glass", Weight: 3},
	}
	t := aggregate.Build(records, core.NewFilter(core.YearRange{Min: 2020, Max: 2021}, categories))
	return views.Build(t, axis)
}

func TestWritePNGAllCharts(t *testing.T) {
	for _, d := range []views.Dashboard{dashboard([]string{"Paper", "Glass"}), dashboard(nil)} {
		for _, name := range ChartNames {
			var buf bytes.Buffer
			require.NoError(t, WritePNG(&buf, d, name, DefaultWidth, DefaultHeight), name)
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic), "%s is not a PNG", name)
		}
	}
}

func TestPointsOnYearAxisWithWeight(t *testing.T) {
	d := dashboard([]string{"Paper", "Glass"})
	pts, kept := pointXYs(d)
	require.Len(t, pts, 4)
	require.Len(t, kept, 4)

	// 2020 and 2021 sit at slots 15 and 16 of the 2005-2025 axis.
	for i, pt := range kept {
		assert.Equal(t, float64(pt.Year-axis.Min), pts[i].X)
		assert.Equal(t, pt.Weight, pts[i].Y)
	}
	assert.Equal(t, 15.0, pts[0].Y, "2020 Paper")

	p, err := Chart(d, views.ViewPoints)
	require.NoError(t, err)
	assert.Equal(t, "Weight (lbs)", p.Y.Label.Text)
}

func TestChartUnknown(t *testing.T) {
	_, err := Chart(dashboard(nil), "table")
	require.ErrorIs(t, err, ErrUnknownChart)
}

func TestParseHex(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x28, G: 0xab, B: 0x9d, A: 255}, parseHex("#28ab9d"))
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, parseHex("teal"))
}

func TestWorkbook(t *testing.T) {
	_, summary := core.Clean([]core.RawRecord{
		{Line: 2, Category: "Paper", Weight: "1", Year: "2020"},
		{Line: 3, Category: "Paper", Weight: "x", Year: "2020"},
	})
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, dashboard([]string{"Paper", "Glass"}), summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetTable, sheetTotals, sheetDropped}, f.GetSheetList())

	rows, err := f.GetRows(sheetTable)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Year", "Category", "Weight (lbs)"}, rows[0])
	assert.Equal(t, "2020", rows[1][0])
	assert.Equal(t, "Paper", rows[1][1])

	totals, err := f.GetRows(sheetTotals)
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, "Glass", totals[1][0])

	dropped, err := f.GetRows(sheetDropped)
	require.NoError(t, err)
	assert.Equal(t, "invalid_weight", dropped[3][0])
}

func TestWorkbookEmptySelection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, dashboard(nil), core.NewValidationSummary()))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetTable)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, dashboard([]string{"Paper"}).Table))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"Year,Category,Weight (lbs)",
		"2020,Paper,15",
		"2021,Paper,0",
	}, lines)
}
