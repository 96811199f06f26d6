package presentation

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Panel is one rendered dashboard chart.
type Panel struct {
	Title string
	SVG   template.HTML
}

const (
	chartHeight   = 320
	minChartWidth = 480
	chartPadding  = 120
)

var (
	colorAltitude  = drawing.ColorFromHex("4a90e2")
	colorSpeed     = drawing.ColorFromHex("50c878")
	colorCountries = drawing.ColorFromHex("ff6b6b")
	pieColors      = []drawing.Color{
		drawing.ColorFromHex("4a90e2"),
		drawing.ColorFromHex("50c878"),
		drawing.ColorFromHex("ff6b6b"),
		drawing.ColorFromHex("ffd700"),
		drawing.ColorFromHex("9b9b9b"),
	}
)

// RenderDashboard draws each non-empty panel as SVG, in display order.
// Empty panels are skipped.
func RenderDashboard(d Dashboard) ([]Panel, error) {
	var panels []Panel

	add := func(title string, render func(*bytes.Buffer) error) error {
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return fmt.Errorf("render %s: %w", title, err)
		}
		panels = append(panels, Panel{Title: title, SVG: template.HTML(buf.String())}) //nolint:gosec // chart labels are sanitized
		return nil
	}

	if !d.Altitude.Empty() {
		if err := add(d.Altitude.Title, func(b *bytes.Buffer) error {
			return renderBars(b, d.Altitude.Title, histogramValues(d.Altitude), colorAltitude, 22, 6)
		}); err != nil {
			return nil, err
		}
	}
	if !d.Speed.Empty() {
		if err := add(d.Speed.Title, func(b *bytes.Buffer) error {
			return renderBars(b, d.Speed.Title, histogramValues(d.Speed), colorSpeed, 22, 6)
		}); err != nil {
			return nil, err
		}
	}
	if len(d.TopCountries) > 0 {
		if err := add(TitleCountries, func(b *bytes.Buffer) error {
			return renderBars(b, TitleCountries, countValues(d.TopCountries), colorCountries, 56, 10)
		}); err != nil {
			return nil, err
		}
	}
	if len(d.PositionSources) > 0 {
		if err := add(TitlePositionSource, func(b *bytes.Buffer) error {
			return renderPie(b, TitlePositionSource, d.PositionSources)
		}); err != nil {
			return nil, err
		}
	}
	return panels, nil
}

func renderBars(buf *bytes.Buffer, title string, bars []chart.Value, color drawing.Color, barWidth, spacing int) error {
	peak := 0.0
	for i := range bars {
		bars[i].Style = chart.Style{FillColor: color, StrokeColor: color}
		peak = max(peak, bars[i].Value)
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      max(minChartWidth, len(bars)*(barWidth+spacing)+chartPadding),
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.Style{FontSize: 7},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: peak},
		},
		Bars: bars,
	}
	return bc.Render(chart.SVG, buf)
}

func renderPie(buf *bytes.Buffer, title string, counts []Count) error {
	values := make([]chart.Value, 0, len(counts))
	for i, c := range counts {
		col := pieColors[i%len(pieColors)]
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", sanitizeLabel(c.Label), c.Count),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: col, StrokeColor: drawing.ColorWhite},
		})
	}
	pc := chart.PieChart{
		Title:  title,
		Width:  minChartWidth,
		Height: chartHeight,
		Values: values,
	}
	return pc.Render(chart.SVG, buf)
}

func histogramValues(h Histogram) []chart.Value {
	out := make([]chart.Value, len(h.Bins))
	for i, b := range h.Bins {
		out[i] = chart.Value{Label: shortNumber(b.Lower), Value: float64(b.Count)}
	}
	return out
}

func countValues(counts []Count) []chart.Value {
	out := make([]chart.Value, len(counts))
	for i, c := range counts {
		out[i] = chart.Value{Label: sanitizeLabel(c.Label), Value: float64(c.Count)}
	}
	return out
}

// shortNumber keeps bar labels narrow: 10972.8 -> "11k".
func shortNumber(v float64) string {
	if v >= 1000 || v <= -1000 {
		return fmt.Sprintf("%.0fk", v/1000)
	}
	return fmt.Sprintf("%.0f", v)
}

// sanitizeLabel drops markup characters; provider strings end up inside SVG text.
func sanitizeLabel(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '&', '"', '\'':
			return -1
		}
		return r
	}, s)
}
