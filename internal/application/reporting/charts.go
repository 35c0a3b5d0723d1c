// Package reporting turns a composed board into exportable artifacts:
// comparison charts, columnar files and the board document itself.
package reporting

import (
	"bytes"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// Palette is the chart series palette, cycled by candidate index.
var Palette = []string{"#8b5cf6", "#06b6d4", "#10b981", "#f59e0b", "#ef4444"}

// Default chart canvas.
const (
	DefaultChartWidth  = 640
	DefaultChartHeight = 360
)

// maxRuleScore is the number of Rule-of-Five criteria.
const maxRuleScore = 4

// PaletteColor returns the palette entry for the i-th series.
func PaletteColor(i int) drawing.Color {
	if i < 0 {
		i = -i
	}
	return drawing.ColorFromHex(strings.TrimPrefix(Palette[i%len(Palette)], "#"))
}

func barStyle(i int) chart.Style {
	c := PaletteColor(i)
	return chart.Style{
		FillColor:   c,
		StrokeColor: c,
		StrokeWidth: 1,
	}
}

func chartSize(w, h int) (int, int) {
	if w <= 0 {
		w = DefaultChartWidth
	}
	if h <= 0 {
		h = DefaultChartHeight
	}
	return w, h
}

// AffinityChart renders the affinity view as a PNG bar chart, one bar per
// candidate labelled with its positional label.
func AffinityChart(proj types.Projection, w, h int) ([]byte, error) {
	if len(proj.Affinity) == 0 {
		return nil, errors.New(errors.ErrCodeExportChartFailed, "no affinity rows to chart")
	}
	w, h = chartSize(w, h)

	top := 0.0
	bars := make([]chart.Value, 0, len(proj.Affinity))
	for i, row := range proj.Affinity {
		bars = append(bars, chart.Value{
			Label: row.Label,
			Value: row.Affinity,
			Style: barStyle(i),
		})
		top = math.Max(top, row.Affinity)
	}
	if top <= 0 {
		top = 1
	}

	return renderBars(chart.BarChart{
		Title:    "Binding affinity",
		Width:    w,
		Height:   h,
		BarWidth: barWidth(w, len(bars)),
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		YAxis: chart.YAxis{
			Name:  "affinity",
			Range: &chart.ContinuousRange{Min: 0, Max: math.Ceil(top * 1.1)},
		},
		Bars: bars,
	})
}

// RuleScoreChart renders each candidate's Rule-of-Five score (0-4).
func RuleScoreChart(proj types.Projection, w, h int) ([]byte, error) {
	if len(proj.Rules) == 0 {
		return nil, errors.New(errors.ErrCodeExportChartFailed, "no rule rows to chart")
	}
	w, h = chartSize(w, h)

	bars := make([]chart.Value, 0, len(proj.Rules))
	for i, row := range proj.Rules {
		bars = append(bars, chart.Value{
			Label: row.Label,
			Value: float64(row.Score),
			Style: barStyle(i),
		})
	}

	return renderBars(chart.BarChart{
		Title:    "Rule-of-Five score",
		Width:    w,
		Height:   h,
		BarWidth: barWidth(w, len(bars)),
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		YAxis: chart.YAxis{
			Name:  "score",
			Range: &chart.ContinuousRange{Min: 0, Max: maxRuleScore},
		},
		Bars: bars,
	})
}

func barWidth(w, n int) int {
	if n <= 0 {
		return 40
	}
	bw := (w - 80) / (2 * n)
	switch {
	case bw < 8:
		return 8
	case bw > 60:
		return 60
	}
	return bw
}

func renderBars(bc chart.BarChart) ([]byte, error) {
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExportChartFailed, "render bar chart")
	}
	return buf.Bytes(), nil
}

//Personal.AI order the ending
