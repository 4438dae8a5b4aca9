package render

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"wastedash/internal/core"
	"wastedash/internal/views"
)

const (
	sheetTable   = "Table"
	sheetTotals  = "Totals"
	sheetDropped = "Dropped"
)

// Workbook builds an XLSX file with the filtered table, the category totals
// (with a doughnut chart) and the validation summary of the load.
func Workbook(d views.Dashboard, summary core.ValidationSummary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetTable); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	b := &builder{f: f}
	b.styles()
	b.tableSheet(d)
	b.totalsSheet(d)
	b.droppedSheet(summary)
	if b.err != nil {
		f.Close()
		return nil, b.err
	}
	return f, nil
}

// WriteWorkbook writes the workbook for d to w.
func WriteWorkbook(w io.Writer, d views.Dashboard, summary core.ValidationSummary) error {
	f, err := Workbook(d, summary)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// builder keeps the first error so sheet code reads top to bottom.
type builder struct {
	f      *excelize.File
	err    error
	header int
	number int
	pct    int
}

func (b *builder) check(err error, what string) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("%s: %w", what, err)
	}
}

func (b *builder) styles() {
	var err error
	b.header, err = b.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{views.Palette[0]}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	b.check(err, "header style")
	b.number, err = b.f.NewStyle(&excelize.Style{NumFmt: 4})
	b.check(err, "number style")
	b.pct, err = b.f.NewStyle(&excelize.Style{NumFmt: 10})
	b.check(err, "percent style")
}

func (b *builder) set(sheet string, col, row int, v any) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		b.check(err, "cell name")
		return
	}
	b.check(b.f.SetCellValue(sheet, cell, v), "set "+sheet+"!"+cell)
}

func (b *builder) headerRow(sheet string, headers ...string) {
	for i, h := range headers {
		b.set(sheet, i+1, 1, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	b.check(b.f.SetCellStyle(sheet, "A1", last, b.header), "header style "+sheet)
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	b.check(b.f.SetColWidth(sheet, "A", lastCol, 18), "column width "+sheet)
}

func (b *builder) tableSheet(d views.Dashboard) {
	b.headerRow(sheetTable, core.ColumnYear, core.ColumnCategory, core.ColumnWeight)
	for i, c := range d.Table {
		row := i + 2
		b.set(sheetTable, 1, row, c.Year)
		b.set(sheetTable, 2, row, c.Category)
		b.set(sheetTable, 3, row, c.Weight)
	}
	if n := len(d.Table); n > 0 {
		b.check(b.f.SetCellStyle(sheetTable, "C2", fmt.Sprintf("C%d", n+1), b.number), "table number style")
	}
}

func (b *builder) totalsSheet(d views.Dashboard) {
	_, err := b.f.NewSheet(sheetTotals)
	b.check(err, "new totals sheet")
	b.headerRow(sheetTotals, core.ColumnCategory, core.ColumnWeight, "Share")
	for i, t := range d.Totals {
		row := i + 2
		b.set(sheetTotals, 1, row, t.Category)
		b.set(sheetTotals, 2, row, t.Weight)
		b.set(sheetTotals, 3, row, t.Share)
	}
	n := len(d.Totals)
	if n == 0 {
		return
	}
	b.check(b.f.SetCellStyle(sheetTotals, "B2", fmt.Sprintf("B%d", n+1), b.number), "totals number style")
	b.check(b.f.SetCellStyle(sheetTotals, "C2", fmt.Sprintf("C%d", n+1), b.pct), "totals percent style")

	b.check(b.f.AddChart(sheetTotals, "E2", &excelize.Chart{
		Type: excelize.Doughnut,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", sheetTotals),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheetTotals, n+1),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", sheetTotals, n+1),
		}},
		Title:    []excelize.RichTextRun{{Text: "Weight by category"}},
		HoleSize: 40,
		Legend:   excelize.ChartLegend{Position: "right"},
		PlotArea: excelize.ChartPlotArea{ShowPercent: true},
	}), "totals chart")
}

func (b *builder) droppedSheet(s core.ValidationSummary) {
	_, err := b.f.NewSheet(sheetDropped)
	b.check(err, "new dropped sheet")
	b.headerRow(sheetDropped, "Reason", "Count", "Line", core.ColumnCategory, core.ColumnWeight, core.ColumnYear)

	b.set(sheetDropped, 1, 2, "total")
	b.set(sheetDropped, 2, 2, s.Total)
	b.set(sheetDropped, 1, 3, "kept")
	b.set(sheetDropped, 2, 3, s.Kept)
	row := 4
	for _, rc := range s.Reasons() {
		b.set(sheetDropped, 1, row, string(rc.Reason))
		b.set(sheetDropped, 2, row, rc.Count)
		row++
	}
	row++
	for _, d := range s.Samples {
		b.set(sheetDropped, 1, row, string(d.Reason))
		b.set(sheetDropped, 3, row, d.Line)
		b.set(sheetDropped, 4, row, d.Raw.Category)
		b.set(sheetDropped, 5, row, d.Raw.Weight)
		b.set(sheetDropped, 6, row, d.Raw.Year)
		row++
	}
}
