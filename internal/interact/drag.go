// Package interact holds the pointer and keyboard state machines for moving,
// activating and editing nodes. Callers feed board-unit pointer positions.
package interact

import "github.com/evanschultz/scorecard/internal/domain"

// Drag tracks one node drag from pointer-down to pointer-up.
type Drag struct {
	nodeID string
	offset domain.Point
	active bool
	moved  bool
}

// Begin starts a drag. It is refused in connect mode or while the node is being edited.
// pointer and nodePos share one coordinate space.
func (d *Drag) Begin(nodeID string, pointer, nodePos domain.Point, connectMode, editing bool) bool {
	if connectMode || editing || nodeID == "" {
		return false
	}
	*d = Drag{
		nodeID: nodeID,
		offset: domain.Point{X: pointer.X - nodePos.X, Y: pointer.Y - nodePos.Y},
		active: true,
	}
	return true
}

// Move returns the node's new position, floored at zero on both axes.
func (d *Drag) Move(pointer domain.Point) (domain.Point, bool) {
	if !d.active {
		return domain.Point{}, false
	}
	d.moved = true
	x, y := domain.ClampPosition(pointer.X-d.offset.X, pointer.Y-d.offset.Y)
	return domain.Point{X: x, Y: y}, true
}

// End finishes the drag. moved is false for a plain click, which should select the node.
func (d *Drag) End() (nodeID string, moved bool) {
	if !d.active {
		return "", false
	}
	nodeID, moved = d.nodeID, d.moved
	*d = Drag{}
	return nodeID, moved
}

// Active reports whether a drag is in progress.
func (d *Drag) Active() bool {
	return d.active
}

// NodeID returns the dragged node id.
func (d *Drag) NodeID() string {
	return d.nodeID
}

// LaneResize tracks a lane-height drag from the lane's bottom handle.
type LaneResize struct {
	laneID      string
	startY      float64
	startHeight float64
	active      bool
}

// Begin starts resizing laneID from its current height.
func (r *LaneResize) Begin(laneID string, pointerY, height float64) {
	*r = LaneResize{laneID: laneID, startY: pointerY, startHeight: height, active: laneID != ""}
}

// Move returns the requested height for the pointer; the board applies the floor.
func (r *LaneResize) Move(pointerY float64) (string, float64, bool) {
	if !r.active {
		return "", 0, false
	}
	return r.laneID, r.startHeight + pointerY - r.startY, true
}

// End stops the resize.
func (r *LaneResize) End() {
	*r = LaneResize{}
}

// Active reports whether a resize is in progress.
func (r *LaneResize) Active() bool {
	return r.active
}
