package interact

import "strings"

// KeyAction is what an editing key press does.
type KeyAction int

const (
	KeyInput KeyAction = iota
	KeyCommit
	KeyNewline
	KeyRevert
)

// ClassifyKey maps a key string (bubbletea KeyPressMsg.String form) to an edit action.
// Enter commits, shift+enter and its terminal fallbacks insert a newline, Escape reverts.
func ClassifyKey(key string) KeyAction {
	switch key {
	case "enter":
		return KeyCommit
	case "shift+enter", "alt+enter", "ctrl+j":
		return KeyNewline
	case "esc":
		return KeyRevert
	default:
		return KeyInput
	}
}

// EditSession is an inline label edit for one node.
type EditSession struct {
	nodeID   string
	original string
	text     string
	active   bool
}

// Begin opens an edit seeded with the node's current text.
func (e *EditSession) Begin(nodeID, original string) {
	*e = EditSession{nodeID: nodeID, original: original, text: original, active: nodeID != ""}
}

// SetText replaces the draft.
func (e *EditSession) SetText(text string) {
	if e.active {
		e.text = text
	}
}

// Text returns the current draft.
func (e *EditSession) Text() string {
	return e.text
}

// NodeID returns the node being edited.
func (e *EditSession) NodeID() string {
	return e.nodeID
}

// Active reports whether an edit is open.
func (e *EditSession) Active() bool {
	return e.active
}

// Commit closes the edit. A non-blank draft is returned trimmed with changed
// true; a blank draft reverts to the original and changed is false.
func (e *EditSession) Commit() (nodeID, text string, changed bool) {
	if !e.active {
		return "", "", false
	}
	nodeID = e.nodeID
	trimmed := strings.TrimSpace(e.text)
	original := e.original
	*e = EditSession{}
	if trimmed == "" {
		return nodeID, original, false
	}
	return nodeID, trimmed, true
}

// Cancel closes the edit and returns the untouched original.
func (e *EditSession) Cancel() (nodeID, original string) {
	nodeID, original = e.nodeID, e.original
	*e = EditSession{}
	return nodeID, original
}
