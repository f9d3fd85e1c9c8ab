package geometry

import (
	"fmt"
	"math"
	"strconv"

	"github.com/evanschultz/scorecard/internal/domain"
)

// Arrowhead defaults in board units.
const (
	ArrowSize   = 6.0
	ArrowSpread = 0.5
)

// Curve is a cubic Bezier connector.
type Curve struct {
	Start domain.Point
	C1    domain.Point
	C2    domain.Point
	End   domain.Point
}

// NewCurve builds the vertical-flow connector between a and b: both control
// points sit on the horizontal midline so the curve leaves and enters vertically.
func NewCurve(a, b domain.Point) Curve {
	midY := (a.Y + b.Y) / 2
	return Curve{
		Start: a,
		C1:    domain.Point{X: a.X, Y: midY},
		C2:    domain.Point{X: b.X, Y: midY},
		End:   b,
	}
}

// Path renders the curve as an SVG path string.
func (c Curve) Path() string {
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(c.Start.X), num(c.Start.Y),
		num(c.C1.X), num(c.C1.Y),
		num(c.C2.X), num(c.C2.Y),
		num(c.End.X), num(c.End.Y),
	)
}

// At evaluates the curve at t in [0,1].
func (c Curve) At(t float64) domain.Point {
	t = math.Max(0, math.Min(1, t))
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	d := 3 * u * t * t
	e := t * t * t
	return domain.Point{
		X: a*c.Start.X + b*c.C1.X + d*c.C2.X + e*c.End.X,
		Y: a*c.Start.Y + b*c.C1.Y + d*c.C2.Y + e*c.End.Y,
	}
}

// Sample returns segments+1 evenly spaced points from Start to End.
func (c Curve) Sample(segments int) []domain.Point {
	segments = max(1, segments)
	out := make([]domain.Point, 0, segments+1)
	for i := 0; i <= segments; i++ {
		out = append(out, c.At(float64(i)/float64(segments)))
	}
	return out
}

// EndTangent returns the approach direction at End.
func (c Curve) EndTangent() domain.Point {
	d := domain.Point{X: c.End.X - c.C2.X, Y: c.End.Y - c.C2.Y}
	if math.Hypot(d.X, d.Y) < 1e-9 {
		d = domain.Point{X: c.End.X - c.Start.X, Y: c.End.Y - c.Start.Y}
	}
	return d
}

// Arrowhead returns the tip and two base corners of a filled arrowhead
// pointing along dir. A zero direction yields a collapsed triangle at tip.
func Arrowhead(tip, dir domain.Point, size, spread float64) [3]domain.Point {
	length := math.Hypot(dir.X, dir.Y)
	if length < 0.1 {
		return [3]domain.Point{tip, tip, tip}
	}
	dx := dir.X / length
	dy := dir.Y / length
	return [3]domain.Point{
		tip,
		{X: tip.X - size*dx + size*dy*spread, Y: tip.Y - size*dy - size*dx*spread},
		{X: tip.X - size*dx - size*dy*spread, Y: tip.Y - size*dy + size*dx*spread},
	}
}

// Anchors picks facing edges for a connection. When from sits above to the
// path runs from its bottom edge to to's top edge, otherwise top to bottom.
func Anchors(from, to Rect) (domain.Point, domain.Point) {
	if from.Center().Y < to.Center().Y {
		return from.BottomCenter(), to.TopCenter()
	}
	return from.TopCenter(), to.BottomCenter()
}

// PendingCurve is the preview from a start node's bottom edge to the pointer.
func PendingCurve(start Rect, pointer domain.Point) Curve {
	return NewCurve(start.BottomCenter(), pointer)
}

// num formats a coordinate without trailing zeros or a negative zero.
func num(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
