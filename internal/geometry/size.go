package geometry

import (
	"strings"

	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// Node sizing constants in board units.
const (
	minNodeWidth   = 90.0
	minNodeHeight  = 42.0
	nodePadX       = 40.0
	nodePadY       = 18.0
	diamondExtraW  = 30.0
	diamondExtraH  = 16.0
	triangleExtraW = 20.0
	triangleExtraH = 10.0
)

// Size is a measured node box plus its wrapped label lines.
type Size struct {
	W     float64
	H     float64
	Lines []string
}

// WrapLabel wraps text to the metrics wrap width, breaking words that do not fit.
func WrapLabel(text string, metrics Metrics) []string {
	metrics = metrics.normalize()
	limit := max(1, int(metrics.WrapWidth/metrics.CharWidth))
	wrapped := wrap.String(wordwrap.String(text, limit), limit)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return lines
}

// NodeSize measures the rendered box of a label in the given shape.
func NodeSize(text string, shape domain.Shape, metrics Metrics) Size {
	metrics = metrics.normalize()
	lines := WrapLabel(text, metrics)
	cells := 0
	for _, line := range lines {
		cells = max(cells, runewidth.StringWidth(line))
	}
	w := max(minNodeWidth, float64(cells)*metrics.CharWidth+nodePadX)
	h := max(minNodeHeight, float64(len(lines))*metrics.LineHeight+nodePadY)
	switch shape {
	case domain.ShapeDiamond:
		w += diamondExtraW
		h += diamondExtraH
	case domain.ShapeTriangle:
		w += triangleExtraW
		h += triangleExtraH
	}
	return Size{W: w, H: h, Lines: lines}
}
