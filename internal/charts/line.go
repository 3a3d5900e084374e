package charts

import (
	"fmt"
	"strings"
)

// Line renders the values as a line with a filled area underneath.
func Line(width, height int, values []float64, labels []string, opts Options) (string, error) {
	f, err := newFrame(width, height, values, labels, opts)
	if err != nil {
		return "", err
	}
	stroke := fallback(opts.Color, "#db2777")
	step := f.labelStep(len(labels))

	xs := make([]float64, len(values))
	for i := range values {
		if len(values) == 1 {
			xs[i] = f.padding + f.chartW/2
			continue
		}
		xs[i] = f.padding + float64(i)*f.chartW/float64(len(values)-1)
	}

	var path strings.Builder
	for i, value := range values {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		} else {
			path.WriteByte(' ')
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, xs[i], f.y(value))
	}

	var b strings.Builder
	writeHeader(&b, f, opts.Title, opts.Description, "line", "Line chart", "Trend")
	writeGrid(&b, f)
	writeAxes(&b, f, f.bottom())

	area := fmt.Sprintf("%s L%.2f %.2f L%.2f %.2f Z", path.String(), xs[len(xs)-1], f.bottom(), xs[0], f.bottom())
	fmt.Fprintf(&b, `<path d="%s" fill="%s" fill-opacity="0.12" stroke="none" aria-hidden="true"></path>`, area, stroke)
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`, path.String(), stroke)

	for i, value := range values {
		if opts.ShowDots {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"></circle>`, xs[i], f.y(value), stroke)
		}
		if i%step == 0 {
			writeLabel(&b, f, xs[i], labels[i])
		}
	}

	b.WriteString("</svg>")
	return b.String(), nil
}
