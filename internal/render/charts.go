// Package render draws dashboard views as PNG charts and exports them as
// spreadsheets.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"wastedash/internal/views"
)

// Default PNG size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

// ChartNames lists the views that have a PNG rendering.
var ChartNames = []string{views.ViewTotals, views.ViewGrouped, views.ViewTrend, views.ViewPoints}

// ErrUnknownChart is returned for a view without a chart.
var ErrUnknownChart = errors.New("unknown chart")

// Chart builds the plot for the named view.
func Chart(d views.Dashboard, name string) (*plot.Plot, error) {
	switch name {
	case views.ViewTotals:
		return totalsChart(d)
	case views.ViewGrouped:
		return groupedChart(d)
	case views.ViewTrend:
		return trendChart(d)
	case views.ViewPoints:
		return pointsChart(d)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
}

// WritePNG renders the named chart to w.
func WritePNG(w io.Writer, d views.Dashboard, name string, width, height vg.Length) error {
	p, err := Chart(d, name)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("encode %s chart: %w", name, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s chart: %w", name, err)
	}
	return nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

// totalsChart shows the category proportions as one bar per category with
// its share in the label. gonum/plot has no pie plotter.
func totalsChart(d views.Dashboard) (*plot.Plot, error) {
	p := newPlot("Total weight by category", "", "Weight (lbs)")
	p.Y.Min = 0

	labels := make([]string, len(d.Totals))
	for i, t := range d.Totals {
		bar, err := plotter.NewBarChart(plotter.Values{t.Weight}, vg.Points(30))
		if err != nil {
			return nil, fmt.Errorf("totals bar %s: %w", t.Category, err)
		}
		bar.XMin = float64(i)
		bar.Color = parseHex(t.Color)
		bar.LineStyle.Width = 0
		p.Add(bar)
		labels[i] = fmt.Sprintf("%s (%.1f%%)", t.Category, t.Share*100)
	}
	if len(labels) > 0 {
		p.NominalX(labels...)
	}
	return p, nil
}

func groupedChart(d views.Dashboard) (*plot.Plot, error) {
	p := newPlot("Weight by year and category", "Year", "Weight (lbs)")
	p.Y.Min = 0

	n := len(d.Grouped.Series)
	width := vg.Points(16)
	if n > 0 {
		width = vg.Points(48 / float64(n))
	}
	for i, s := range d.Grouped.Series {
		bar, err := plotter.NewBarChart(valuesOf(s), width)
		if err != nil {
			return nil, fmt.Errorf("grouped bar %s: %w", s.Category, err)
		}
		bar.Offset = vg.Length(float64(i)-float64(n-1)/2) * width
		bar.Color = parseHex(s.Color)
		bar.LineStyle.Width = 0
		p.Add(bar)
		p.Legend.Add(s.Category, bar)
	}
	p.NominalX(yearLabels(d.Grouped.Axis)...)
	return p, nil
}

func trendChart(d views.Dashboard) (*plot.Plot, error) {
	p := newPlot("Trend by category", "Year", "Weight (lbs)")
	p.Y.Min = 0

	for _, s := range d.Trend.Series {
		pts := make(plotter.XYs, 0, len(s.Values))
		for i, v := range s.Values {
			if v == nil {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(i), Y: *v})
		}
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("trend line %s: %w", s.Category, err)
		}
		c := parseHex(s.Color)
		line.Color = c
		line.Width = vg.Points(2)
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add(s.Category, line, points)
	}
	p.NominalX(yearLabels(d.Trend.Axis)...)
	return p, nil
}

func pointsChart(d views.Dashboard) (*plot.Plot, error) {
	p := newPlot("Weight magnitude", "Year", "Weight (lbs)")
	p.Y.Min = 0

	pts, kept := pointXYs(d)
	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("points: %w", err)
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  parseHex(kept[i].Color),
				Radius: vg.Points(kept[i].Size / 2),
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(sc)
	}
	p.NominalX(yearLabels(d.Axis)...)
	return p, nil
}

// pointXYs places each point at its year's slot on the discrete axis with
// its weight on Y. Points for years off the axis are skipped.
func pointXYs(d views.Dashboard) (plotter.XYs, []views.Point) {
	axisIndex := make(map[int]int, len(d.Axis))
	for i, y := range d.Axis {
		axisIndex[y] = i
	}
	var pts plotter.XYs
	var kept []views.Point
	for _, pt := range d.Points {
		x, ok := axisIndex[pt.Year]
		if !ok {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(x), Y: pt.Weight})
		kept = append(kept, pt)
	}
	return pts, kept
}

func valuesOf(s views.Series) plotter.Values {
	out := make(plotter.Values, len(s.Values))
	for i, v := range s.Values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

func yearLabels(years []int) []string {
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}

// parseHex converts "#rrggbb" to a color; anything else yields gray.
func parseHex(s string) color.Color {
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	if len(s) != 7 || s[0] != '#' {
		return gray
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return gray
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
