package charts

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars renders one bar per value.
func Bars(width, height int, values []float64, labels []string, opts Options) (string, error) {
	f, err := newFrame(width, height, values, labels, opts)
	if err != nil {
		return "", err
	}
	color := fallback(opts.Color, "#db2777")
	zeroY := f.y(0)
	slot := f.chartW / float64(len(values))
	barWidth := slot * 0.7
	step := f.labelStep(len(labels))

	var b strings.Builder
	writeHeader(&b, f, opts.Title, opts.Description, "bar", "Bar chart", "Bar series")
	writeGrid(&b, f)
	writeAxes(&b, f, zeroY)

	for i, value := range values {
		x := f.padding + float64(i)*slot + (slot-barWidth)/2
		y, h := barPosition(value, f.scale, zeroY, f.padding, f.bottom())
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s: %s"></rect>`,
			x, y, barWidth, h, color, template.HTMLEscapeString(labels[i]), formatTick(value))
		if i%step == 0 {
			writeLabel(&b, f, x+barWidth/2, labels[i])
		}
	}

	b.WriteString("</svg>")
	return b.String(), nil
}

// barPosition clips a bar to the plot area and returns its top and height.
func barPosition(value, scale, zeroY, top, bottom float64) (float64, float64) {
	if value >= 0 {
		height := value * scale
		y := zeroY - height
		if y < top {
			height -= top - y
			y = top
		}
		return y, math.Max(height, 0)
	}
	height := math.Abs(value * scale)
	if zeroY+height > bottom {
		height = bottom - zeroY
	}
	return zeroY, math.Max(height, 0)
}
