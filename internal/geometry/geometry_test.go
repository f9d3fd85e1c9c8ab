package geometry

import (
	"strings"
	"testing"

	"github.com/evanschultz/scorecard/internal/board"
	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/google/go-cmp/cmp"
)

func TestNodeSize(t *testing.T) {
	metrics := DefaultMetrics()
	cases := []struct {
		name      string
		text      string
		shape     domain.Shape
		wantW     float64
		wantH     float64
		wantLines int
	}{
		{name: "default capsule floors", text: "新目标", shape: domain.ShapeCapsule, wantW: 90, wantH: 42, wantLines: 1},
		{name: "diamond extra", text: "新目标", shape: domain.ShapeDiamond, wantW: 120, wantH: 58, wantLines: 1},
		{name: "triangle extra", text: "新目标", shape: domain.ShapeTriangle, wantW: 110, wantH: 52, wantLines: 1},
		{name: "word wrap", text: "abcdefghij abcdefghij abcdefghij", shape: domain.ShapeRectangle, wantW: 208, wantH: 50, wantLines: 2},
		{name: "wide runes hard wrap", text: strings.Repeat("目", 30), shape: domain.ShapeCapsule, wantW: 216, wantH: 66, wantLines: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NodeSize(tc.text, tc.shape, metrics)
			if got.W != tc.wantW || got.H != tc.wantH || len(got.Lines) != tc.wantLines {
				t.Fatalf("NodeSize() = %vx%v with %d lines %q, want %vx%v with %d", got.W, got.H, len(got.Lines), got.Lines, tc.wantW, tc.wantH, tc.wantLines)
			}
		})
	}
}

// twoLaneBoard places one node in lane 1 and one in lane 2, both at (10, 20).
func twoLaneBoard(t *testing.T) (*board.Board, domain.Node, domain.Node) {
	t.Helper()
	b := board.New(board.WithRandom(func() float64 { return 0 }), board.WithConnectionIDGenerator(board.CounterIDs("conn")))
	top, _ := b.AddNode(domain.LaneFinancial)
	bottom, _ := b.AddNode(domain.LaneCustomer)
	b.MoveNode(top.ID, 10, 20)
	b.MoveNode(bottom.ID, 10, 20)
	return b, top, bottom
}

func TestComputeLayout(t *testing.T) {
	b, top, bottom := twoLaneBoard(t)
	layout := Compute(b.Lanes(), DefaultMetrics())

	if len(layout.Lanes) != 4 {
		t.Fatalf("lanes = %d, want 4", len(layout.Lanes))
	}
	if got := layout.Lanes[1].Rect.Y; got != 216 {
		t.Fatalf("lane 2 top = %v, want 216", got)
	}
	if got := layout.Height; got != 4*200+3*16 {
		t.Fatalf("height = %v, want 848", got)
	}
	box, ok := layout.Node(top.ID)
	if !ok {
		t.Fatalf("Node(%q) missing", top.ID)
	}
	if diff := cmp.Diff(Rect{X: 130, Y: 20, W: 90, H: 42}, box.Rect); diff != "" {
		t.Fatalf("top rect mismatch (-want +got):\n%s", diff)
	}
	box, _ = layout.Node(bottom.ID)
	if box.Rect.Y != 236 || box.LaneID != domain.LaneCustomer {
		t.Fatalf("bottom box = %#v", box)
	}

	hit, ok := layout.NodeAt(domain.Point{X: 150, Y: 250})
	if !ok || hit.Node.ID != bottom.ID {
		t.Fatalf("NodeAt() = %#v, %v", hit, ok)
	}
	if _, ok := layout.NodeAt(domain.Point{X: 5, Y: 5}); ok {
		t.Fatalf("NodeAt() on the title gutter should miss")
	}
	lane, ok := layout.LaneAt(domain.Point{X: 500, Y: 300})
	if !ok || lane.ID != domain.LaneCustomer {
		t.Fatalf("LaneAt() = %#v, %v", lane, ok)
	}
	if _, ok := layout.LaneAt(domain.Point{X: 500, Y: 208}); ok {
		t.Fatalf("LaneAt() inside the lane gap should miss")
	}
	if id, ok := layout.ResizeHandleAt(domain.Point{X: 400, Y: 198}); !ok || id != domain.LaneFinancial {
		t.Fatalf("ResizeHandleAt() = %q, %v", id, ok)
	}
	rel, ok := layout.ToLane(domain.LaneCustomer, domain.Point{X: 150, Y: 250})
	if !ok || rel != (domain.Point{X: 30, Y: 34}) {
		t.Fatalf("ToLane() = %#v, %v", rel, ok)
	}
}

func TestAnchorsFollowVerticalFlow(t *testing.T) {
	upper := Rect{X: 130, Y: 20, W: 90, H: 42}
	lower := Rect{X: 130, Y: 236, W: 90, H: 42}

	a, b := Anchors(upper, lower)
	if a != (domain.Point{X: 175, Y: 62}) || b != (domain.Point{X: 175, Y: 236}) {
		t.Fatalf("downward anchors = %#v %#v", a, b)
	}
	a, b = Anchors(lower, upper)
	if a != (domain.Point{X: 175, Y: 236}) || b != (domain.Point{X: 175, Y: 62}) {
		t.Fatalf("upward anchors = %#v %#v", a, b)
	}
}

func TestCurvePath(t *testing.T) {
	c := NewCurve(domain.Point{X: 175, Y: 62}, domain.Point{X: 300.5, Y: 236})
	want := "M 175 62 C 175 149, 300.5 149, 300.5 236"
	if got := c.Path(); got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
	pts := c.Sample(4)
	if len(pts) != 5 {
		t.Fatalf("Sample(4) = %d points, want 5", len(pts))
	}
	if pts[0] != c.Start || pts[4] != c.End {
		t.Fatalf("Sample() endpoints = %#v %#v", pts[0], pts[4])
	}
	if mid := c.At(0.5); mid.Y != 149 {
		t.Fatalf("At(0.5).Y = %v, want 149", mid.Y)
	}
}

func TestArrowheadPointsAlongDirection(t *testing.T) {
	got := Arrowhead(domain.Point{X: 175, Y: 62}, domain.Point{X: 0, Y: -87}, ArrowSize, ArrowSpread)
	want := [3]domain.Point{{X: 175, Y: 62}, {X: 172, Y: 68}, {X: 178, Y: 68}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Arrowhead() mismatch (-want +got):\n%s", diff)
	}
	collapsed := Arrowhead(domain.Point{X: 1, Y: 1}, domain.Point{}, ArrowSize, ArrowSpread)
	if collapsed[1] != collapsed[0] {
		t.Fatalf("zero direction should collapse, got %#v", collapsed)
	}
}

func TestOverlayRecomputesOnlyAfterChange(t *testing.T) {
	b, top, bottom := twoLaneBoard(t)
	b.Connect(top.ID, bottom.ID)

	overlay := NewOverlay(b, DefaultMetrics())
	defer overlay.Close()

	paths := overlay.Paths()
	if len(paths) != 1 {
		t.Fatalf("paths = %d, want 1", len(paths))
	}
	if got := paths[0].D(); got != "M 175 62 C 175 149, 175 149, 175 236" {
		t.Fatalf("D() = %q", got)
	}
	overlay.Paths()
	overlay.Layout()
	if got := overlay.Recomputes(); got != 1 {
		t.Fatalf("recomputes = %d, want 1", got)
	}

	b.SelectNode(top.ID)
	overlay.Paths()
	if got := overlay.Recomputes(); got != 1 {
		t.Fatalf("selection should not trigger a recompute, got %d", got)
	}

	b.MoveNode(bottom.ID, 210, 20)
	paths = overlay.Paths()
	if got := overlay.Recomputes(); got != 2 {
		t.Fatalf("recomputes = %d, want 2", got)
	}
	if paths[0].Curve.End.X != 375 {
		t.Fatalf("end x = %v, want 375", paths[0].Curve.End.X)
	}

	overlay.Close()
	b.MoveNode(bottom.ID, 10, 20)
	overlay.Paths()
	if got := overlay.Recomputes(); got != 2 {
		t.Fatalf("closed overlay recomputed, got %d", got)
	}
}

func TestOverlaySkipsMissingEndpoints(t *testing.T) {
	layout := Compute(domain.DefaultLanes([]domain.Node{{ID: "a_financial", Text: "A"}}), DefaultMetrics())
	paths := ConnectorPaths(layout, []domain.Connection{{ID: "c1", From: "a_financial", To: "gone"}})
	if len(paths) != 0 {
		t.Fatalf("paths = %d, want 0", len(paths))
	}
}

func TestOverlayPendingPreview(t *testing.T) {
	b, top, _ := twoLaneBoard(t)
	overlay := NewOverlay(b, DefaultMetrics())
	defer overlay.Close()

	b.ToggleConnectMode()
	b.ClickNode(top.ID)
	if _, ok := overlay.PendingPath(); ok {
		t.Fatalf("preview needs a pointer")
	}
	b.MovePointer(400, 300)
	path, ok := overlay.PendingPath()
	if !ok || !path.Dashed {
		t.Fatalf("PendingPath() = %#v, %v", path, ok)
	}
	if path.Curve.Start != (domain.Point{X: 175, Y: 62}) || path.Curve.End != (domain.Point{X: 400, Y: 300}) {
		t.Fatalf("preview curve = %#v", path.Curve)
	}
	b.CancelPending()
	if _, ok := overlay.PendingPath(); ok {
		t.Fatalf("preview should clear on escape")
	}
}

func TestMetricsCells(t *testing.T) {
	m := DefaultMetrics()
	col, row := m.ToCell(domain.Point{X: 17, Y: 33})
	if col != 2 || row != 2 {
		t.Fatalf("ToCell() = %d,%d, want 2,2", col, row)
	}
	if p := m.FromCell(3, 4); p != (domain.Point{X: 24, Y: 64}) {
		t.Fatalf("FromCell() = %#v", p)
	}
}
