// Package charts renders dashboard series as standalone SVG documents.
package charts

import "errors"

// Errors returned by the renderers.
var (
	ErrEmptySeries   = errors.New("charts: series required")
	ErrLabelMismatch = errors.New("charts: labels length must match values")
	ErrViewport      = errors.New("charts: viewport too small")
)

// Options customises a chart.
type Options struct {
	Title       string
	Description string
	Color       string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	// MaxLabels thins the x axis so at most this many labels are drawn.
	MaxLabels int
	ShowDots  bool
}

// Defaults for the dashboard charts.
const (
	DefaultWidth     = 720
	DefaultHeight    = 240
	DefaultPadding   = 32.0
	DefaultTicks     = 5
	DefaultMaxLabels = 16
)

type frame struct {
	width, height int
	padding       float64
	ticks         int
	maxLabels     int
	chartW        float64
	chartH        float64
	minVal        float64
	maxVal        float64
	scale         float64
	axisColor     string
	gridColor     string
}

func newFrame(width, height int, values []float64, labels []string, opts Options) (frame, error) {
	if len(values) == 0 {
		return frame{}, ErrEmptySeries
	}
	if len(values) != len(labels) {
		return frame{}, ErrLabelMismatch
	}
	f := frame{
		width:     width,
		height:    height,
		padding:   opts.Padding,
		ticks:     opts.TickCount,
		maxLabels: opts.MaxLabels,
		axisColor: fallback(opts.AxisColor, "#475569"),
		gridColor: fallback(opts.GridColor, "#e2e8f0"),
	}
	if f.width <= 0 {
		f.width = DefaultWidth
	}
	if f.height <= 0 {
		f.height = DefaultHeight
	}
	if f.padding <= 0 {
		f.padding = DefaultPadding
	}
	if f.ticks <= 0 {
		f.ticks = DefaultTicks
	}
	if f.maxLabels <= 0 {
		f.maxLabels = DefaultMaxLabels
	}
	f.chartW = float64(f.width) - 2*f.padding
	f.chartH = float64(f.height) - 2*f.padding
	if f.chartW <= 0 || f.chartH <= 0 {
		return frame{}, ErrViewport
	}

	f.minVal, f.maxVal = bounds(values)
	if f.minVal > 0 {
		f.minVal = 0
	}
	if f.maxVal < 0 {
		f.maxVal = 0
	}
	if almostEqual(f.maxVal, f.minVal) {
		f.maxVal = f.minVal + 1
	}
	f.scale = f.chartH / (f.maxVal - f.minVal)
	return f, nil
}

func (f frame) bottom() float64 { return f.padding + f.chartH }

func (f frame) y(value float64) float64 {
	return f.bottom() - (value-f.minVal)*f.scale
}

// labelStep returns how many labels to skip between drawn ones.
func (f frame) labelStep(n int) int {
	if n <= f.maxLabels {
		return 1
	}
	return (n + f.maxLabels - 1) / f.maxLabels
}
