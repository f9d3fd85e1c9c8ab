package board

import "github.com/evanschultz/scorecard/internal/domain"

// ConnectKind tags the connection-protocol state.
type ConnectKind int

const (
	Idle ConnectKind = iota
	AwaitingTarget
)

// String returns a stable label for logs and status lines.
func (k ConnectKind) String() string {
	switch k {
	case AwaitingTarget:
		return "awaiting_target"
	default:
		return "idle"
	}
}

// ConnectState is Idle or AwaitingTarget{StartID}.
type ConnectState struct {
	Kind    ConnectKind
	StartID string
}

// Awaiting reports whether a start node has been picked.
func (s ConnectState) Awaiting() bool {
	return s.Kind == AwaitingTarget
}

// ConnectEvent is one input to the connection protocol.
type ConnectEvent interface {
	connectEvent()
}

// NodeClicked is a click on a node while connect mode is on.
type NodeClicked struct {
	NodeID string
}

// EscapePressed cancels a pending start.
type EscapePressed struct{}

// ModeOff is emitted when connect mode is toggled.
type ModeOff struct{}

// PointerMoved carries the preview pointer; it never changes the state.
type PointerMoved struct {
	At domain.Point
}

func (NodeClicked) connectEvent()   {}
func (EscapePressed) connectEvent() {}
func (ModeOff) connectEvent()       {}
func (PointerMoved) connectEvent()  {}

// Link is a proposed directed connection produced by a completed click pair.
type Link struct {
	From string
	To   string
}

// Transition applies one event to the protocol state. It is pure: the caller
// decides whether a proposed link duplicates an existing connection.
func Transition(state ConnectState, ev ConnectEvent) (ConnectState, *Link) {
	idle := ConnectState{Kind: Idle}
	switch ev := ev.(type) {
	case NodeClicked:
		if ev.NodeID == "" {
			return state, nil
		}
		if !state.Awaiting() {
			return ConnectState{Kind: AwaitingTarget, StartID: ev.NodeID}, nil
		}
		if state.StartID == ev.NodeID {
			return idle, nil
		}
		return idle, &Link{From: state.StartID, To: ev.NodeID}
	case EscapePressed, ModeOff:
		return idle, nil
	case PointerMoved:
		return state, nil
	default:
		return state, nil
	}
}
