// Package geometry computes node boxes, connector anchors and Bezier paths for
// the board in board units.
package geometry

import (
	"math"

	"github.com/evanschultz/scorecard/internal/domain"
)

// Metrics describes how board units relate to text and terminal cells.
type Metrics struct {
	CharWidth       float64
	LineHeight      float64
	TitleWidth      float64
	LaneGap         float64
	WrapWidth       float64
	MinContentWidth float64
}

// DefaultMetrics returns the metrics shared by the TUI and the PNG renderer.
func DefaultMetrics() Metrics {
	return Metrics{
		CharWidth:       8,
		LineHeight:      16,
		TitleWidth:      120,
		LaneGap:         16,
		WrapWidth:       180,
		MinContentWidth: 960,
	}
}

// normalize fills zero fields from DefaultMetrics.
func (m Metrics) normalize() Metrics {
	def := DefaultMetrics()
	if m.CharWidth <= 0 {
		m.CharWidth = def.CharWidth
	}
	if m.LineHeight <= 0 {
		m.LineHeight = def.LineHeight
	}
	if m.TitleWidth < 0 {
		m.TitleWidth = def.TitleWidth
	}
	if m.LaneGap < 0 {
		m.LaneGap = def.LaneGap
	}
	if m.WrapWidth <= 0 {
		m.WrapWidth = def.WrapWidth
	}
	if m.MinContentWidth <= 0 {
		m.MinContentWidth = def.MinContentWidth
	}
	return m
}

// ToCell converts a board point to a terminal column and row.
func (m Metrics) ToCell(p domain.Point) (int, int) {
	m = m.normalize()
	return int(math.Floor(p.X / m.CharWidth)), int(math.Floor(p.Y / m.LineHeight))
}

// FromCell converts a terminal column and row to the board point at the cell's top-left.
func (m Metrics) FromCell(col, row int) domain.Point {
	m = m.normalize()
	return domain.Point{X: float64(col) * m.CharWidth, Y: float64(row) * m.LineHeight}
}

// Rect is an axis-aligned box in board units.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the midpoint.
func (r Rect) Center() domain.Point {
	return domain.Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// TopCenter returns the midpoint of the top edge.
func (r Rect) TopCenter() domain.Point {
	return domain.Point{X: r.X + r.W/2, Y: r.Y}
}

// BottomCenter returns the midpoint of the bottom edge.
func (r Rect) BottomCenter() domain.Point {
	return domain.Point{X: r.X + r.W/2, Y: r.Y + r.H}
}

// Contains reports whether p lies inside the rectangle, edges included.
func (r Rect) Contains(p domain.Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// LaneBox is one lane's absolute placement.
type LaneBox struct {
	ID         string
	Title      string
	ColorClass string
	Rect       Rect
	Content    Rect
}

// NodeBox is one node's absolute placement and wrapped label.
type NodeBox struct {
	Node   domain.Node
	LaneID string
	Rect   Rect
	Lines  []string
}

// Layout is the in-memory position map for one board state.
type Layout struct {
	Metrics Metrics
	Lanes   []LaneBox
	Width   float64
	Height  float64

	nodes map[string]NodeBox
	order []string
}

// ResizeHandleHeight is the strip at a lane bottom that starts a resize drag.
const ResizeHandleHeight = 8.0

// Compute places lanes top to bottom and every node inside its lane content area.
func Compute(lanes []domain.Lane, metrics Metrics) Layout {
	metrics = metrics.normalize()
	out := Layout{
		Metrics: metrics,
		Lanes:   make([]LaneBox, 0, len(lanes)),
		nodes:   map[string]NodeBox{},
	}

	contentWidth := metrics.MinContentWidth
	y := 0.0
	for i, lane := range lanes {
		if i > 0 {
			y += metrics.LaneGap
		}
		box := LaneBox{
			ID:         lane.ID,
			Title:      lane.Title,
			ColorClass: lane.ColorClass,
			Rect:       Rect{X: 0, Y: y, H: lane.Height},
			Content:    Rect{X: metrics.TitleWidth, Y: y, H: lane.Height},
		}
		for _, node := range lane.Nodes {
			size := NodeSize(node.Text, node.Shape, metrics)
			rect := Rect{
				X: box.Content.X + node.X,
				Y: box.Content.Y + node.Y,
				W: size.W,
				H: size.H,
			}
			out.nodes[node.ID] = NodeBox{Node: node, LaneID: lane.ID, Rect: rect, Lines: size.Lines}
			out.order = append(out.order, node.ID)
			contentWidth = max(contentWidth, node.X+size.W+domain.LanePadding)
		}
		out.Lanes = append(out.Lanes, box)
		y += lane.Height
	}

	for i := range out.Lanes {
		out.Lanes[i].Rect.W = metrics.TitleWidth + contentWidth
		out.Lanes[i].Content.W = contentWidth
	}
	out.Width = metrics.TitleWidth + contentWidth
	out.Height = y
	return out
}

// Node returns the box for one node id.
func (l Layout) Node(id string) (NodeBox, bool) {
	box, ok := l.nodes[id]
	return box, ok
}

// Nodes returns every node box in lane then insertion order.
func (l Layout) Nodes() []NodeBox {
	out := make([]NodeBox, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.nodes[id])
	}
	return out
}

// NodeAt returns the topmost node under p. Later nodes draw over earlier ones.
func (l Layout) NodeAt(p domain.Point) (NodeBox, bool) {
	for i := len(l.order) - 1; i >= 0; i-- {
		box := l.nodes[l.order[i]]
		if box.Rect.Contains(p) {
			return box, true
		}
	}
	return NodeBox{}, false
}

// LaneAt returns the lane under p.
func (l Layout) LaneAt(p domain.Point) (LaneBox, bool) {
	for _, lane := range l.Lanes {
		if lane.Rect.Contains(p) {
			return lane, true
		}
	}
	return LaneBox{}, false
}

// Lane returns the box for one lane id.
func (l Layout) Lane(id string) (LaneBox, bool) {
	for _, lane := range l.Lanes {
		if lane.ID == id {
			return lane, true
		}
	}
	return LaneBox{}, false
}

// ResizeHandleAt reports the lane whose bottom resize strip contains p.
func (l Layout) ResizeHandleAt(p domain.Point) (string, bool) {
	for _, lane := range l.Lanes {
		strip := Rect{
			X: lane.Rect.X,
			Y: lane.Rect.Bottom() - ResizeHandleHeight,
			W: lane.Rect.W,
			H: ResizeHandleHeight,
		}
		if strip.Contains(p) {
			return lane.ID, true
		}
	}
	return "", false
}

// ToLane converts an absolute point to coordinates relative to a lane's content area.
func (l Layout) ToLane(laneID string, p domain.Point) (domain.Point, bool) {
	lane, ok := l.Lane(laneID)
	if !ok {
		return domain.Point{}, false
	}
	return domain.Point{X: p.X - lane.Content.X, Y: p.Y - lane.Content.Y}, true
}
