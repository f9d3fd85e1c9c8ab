package board

import "github.com/evanschultz/scorecard/internal/domain"

// EventKind names a board change.
type EventKind string

const (
	EventNodeAdded          EventKind = "node_added"
	EventNodeRemoved        EventKind = "node_removed"
	EventNodeMoved          EventKind = "node_moved"
	EventNodeUpdated        EventKind = "node_updated"
	EventNodeStyled         EventKind = "node_styled"
	EventLaneResized        EventKind = "lane_resized"
	EventConnectionsChanged EventKind = "connections_changed"
	EventPendingChanged     EventKind = "pending_changed"
	EventSelectionChanged   EventKind = "selection_changed"
	EventModeChanged        EventKind = "mode_changed"
	EventLockChanged        EventKind = "lock_changed"
	EventReset              EventKind = "reset"
	EventRestored           EventKind = "restored"
	EventNodeActivated      EventKind = "node_activated"
)

// Activation is the payload published when a node is double-clicked.
type Activation struct {
	NodeID string  `json:"nodeId"`
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Event describes one applied mutation.
type Event struct {
	Kind       EventKind
	LaneID     string
	NodeID     string
	Activation *Activation
}

// AffectsGeometry reports whether the change can move a rendered node or connector.
func (e Event) AffectsGeometry() bool {
	switch e.Kind {
	case EventNodeActivated, EventSelectionChanged, EventLockChanged:
		return false
	default:
		return true
	}
}

// Listener receives events synchronously after each mutation.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers a listener and returns its unsubscribe func.
func (b *Board) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	b.nextSubID++
	id := b.nextSubID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return func() {
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// publish fans one event out to the current listeners.
func (b *Board) publish(ev Event) {
	subs := append([]subscription(nil), b.subs...)
	for _, sub := range subs {
		sub.fn(ev)
	}
}

// activationFor builds the double-click payload for one node.
func activationFor(node domain.Node) *Activation {
	return &Activation{NodeID: node.ID, Text: node.Text, X: node.X, Y: node.Y}
}
