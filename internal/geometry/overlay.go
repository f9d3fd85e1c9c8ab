package geometry

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/evanschultz/scorecard/internal/board"
	"github.com/evanschultz/scorecard/internal/domain"
)

// Source is the read side of a board the overlay follows.
type Source interface {
	Lanes() []domain.Lane
	Connections() []domain.Connection
	Pending() (board.Pending, bool)
	Subscribe(board.Listener) func()
}

// Path is one rendered connector.
type Path struct {
	ConnectionID string
	From         string
	To           string
	Curve        Curve
	Arrow        [3]domain.Point
	Dashed       bool
}

// D returns the SVG path data.
func (p Path) D() string {
	return p.Curve.Path()
}

// Overlay caches the layout and connector paths for a board and recomputes
// them only after a geometry-affecting change notification.
type Overlay struct {
	src         Source
	metrics     Metrics
	dirty       atomic.Bool
	unsubscribe func()

	mu         sync.Mutex
	layout     Layout
	paths      []Path
	pending    *Path
	recomputes int
}

// NewOverlay subscribes to src and marks the cache dirty.
func NewOverlay(src Source, metrics Metrics) *Overlay {
	o := &Overlay{src: src, metrics: metrics.normalize()}
	o.dirty.Store(true)
	o.unsubscribe = src.Subscribe(func(ev board.Event) {
		if ev.AffectsGeometry() {
			o.dirty.Store(true)
		}
	})
	return o
}

// Close stops following the board.
func (o *Overlay) Close() {
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
}

// Invalidate forces a recompute on the next read, e.g. after a metrics change.
func (o *Overlay) Invalidate() {
	o.dirty.Store(true)
}

// Layout returns the current position map.
func (o *Overlay) Layout() Layout {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshLocked()
	return o.layout
}

// Paths returns the committed connector paths. Connections whose endpoints
// are missing from the layout are skipped.
func (o *Overlay) Paths() []Path {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshLocked()
	return slices.Clone(o.paths)
}

// PendingPath returns the dashed preview while a start node and pointer are set.
func (o *Overlay) PendingPath() (Path, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshLocked()
	if o.pending == nil {
		return Path{}, false
	}
	return *o.pending, true
}

// Recomputes reports how many times the cache has been rebuilt.
func (o *Overlay) Recomputes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.recomputes
}

// refreshLocked rebuilds the cache when dirty. Callers hold o.mu.
func (o *Overlay) refreshLocked() {
	if !o.dirty.Swap(false) {
		return
	}
	o.recomputes++
	o.layout = Compute(o.src.Lanes(), o.metrics)
	o.paths = ConnectorPaths(o.layout, o.src.Connections())
	o.pending = nil
	if pending, ok := o.src.Pending(); ok && pending.Pointer != nil {
		if start, ok := o.layout.Node(pending.StartID); ok {
			path := pendingPath(start.Rect, *pending.Pointer)
			o.pending = &path
		}
	}
}

// ConnectorPaths computes paths for every connection with both endpoints laid out.
func ConnectorPaths(layout Layout, conns []domain.Connection) []Path {
	out := make([]Path, 0, len(conns))
	for _, conn := range conns {
		from, ok := layout.Node(conn.From)
		if !ok {
			continue
		}
		to, ok := layout.Node(conn.To)
		if !ok {
			continue
		}
		a, b := Anchors(from.Rect, to.Rect)
		curve := NewCurve(a, b)
		out = append(out, Path{
			ConnectionID: conn.ID,
			From:         conn.From,
			To:           conn.To,
			Curve:        curve,
			Arrow:        Arrowhead(curve.End, curve.EndTangent(), ArrowSize, ArrowSpread),
		})
	}
	return out
}

// pendingPath builds the dashed preview path.
func pendingPath(start Rect, pointer domain.Point) Path {
	curve := PendingCurve(start, pointer)
	return Path{
		Curve:  curve,
		Arrow:  Arrowhead(curve.End, curve.EndTangent(), ArrowSize, ArrowSpread),
		Dashed: true,
	}
}
