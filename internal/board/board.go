// Package board holds the swim-lane board controller and its connection protocol.
package board

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/google/uuid"
)

// Random placement spread for new nodes, added to domain.LanePadding.
const (
	spreadX = 300.0
	spreadY = 60.0
)

// IDGenerator returns identifiers for new nodes or connections.
type IDGenerator func() string

// Option configures a Board.
type Option func(*Board)

// Pending is the in-progress connection: a start node plus the preview pointer.
type Pending struct {
	StartID string
	Pointer *domain.Point
}

// StylePatch holds optional style changes for one node.
type StylePatch struct {
	Shape  *domain.Shape
	Fill   *string
	Border *string
}

// State is the persistable part of a board.
type State struct {
	Lanes       []domain.Lane
	Connections []domain.Connection
	Locked      bool
}

// Board owns the lanes and connections and mediates every mutation.
type Board struct {
	lanes       []domain.Lane
	connections []domain.Connection
	selected    string
	connectMode bool
	connect     ConnectState
	pointer     *domain.Point
	locked      bool

	laneHeight float64
	initial    []domain.Node
	nodeIDs    IDGenerator
	connIDs    IDGenerator
	random     func() float64

	subs      []subscription
	nextSubID int
}

// WithIDGenerator sets the node id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(b *Board) {
		if gen != nil {
			b.nodeIDs = gen
		}
	}
}

// WithConnectionIDGenerator sets the connection id generator.
func WithConnectionIDGenerator(gen IDGenerator) Option {
	return func(b *Board) {
		if gen != nil {
			b.connIDs = gen
		}
	}
}

// WithRandom sets the [0,1) source used for new node placement.
func WithRandom(fn func() float64) Option {
	return func(b *Board) {
		if fn != nil {
			b.random = fn
		}
	}
}

// WithLaneHeight sets the height lanes start with and return to on reset.
func WithLaneHeight(height float64) Option {
	return func(b *Board) {
		b.laneHeight = domain.ClampLaneHeight(height)
	}
}

// WithInitialNodes distributes nodes into lanes by id keyword.
func WithInitialNodes(nodes []domain.Node) Option {
	return func(b *Board) {
		b.initial = slices.Clone(nodes)
	}
}

// CounterIDs returns a per-instance monotonic generator producing prefix_1, prefix_2, ...
func CounterIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
}

// New constructs a board with empty default lanes.
func New(opts ...Option) *Board {
	b := &Board{
		laneHeight: domain.DefaultLaneHeight,
		nodeIDs:    CounterIDs("cap"),
		connIDs:    func() string { return "conn_" + uuid.NewString() },
		random:     rand.Float64,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.lanes = domain.DefaultLanesWithHeight(b.initial, b.laneHeight)
	b.initial = nil
	return b
}

// AddNode appends a default node at a random position. Unknown lanes are a no-op.
func (b *Board) AddNode(laneID string) (domain.Node, bool) {
	idx := b.laneIndex(laneID)
	if idx < 0 {
		return domain.Node{}, false
	}
	node, err := domain.NewNode(domain.NodeInput{
		ID:   b.nextNodeID(),
		Text: domain.DefaultNodeText,
		X:    domain.LanePadding + b.random()*spreadX,
		Y:    domain.LanePadding + b.random()*spreadY,
	})
	if err != nil {
		return domain.Node{}, false
	}
	b.lanes[idx].Nodes = append(b.lanes[idx].Nodes, node)
	b.publish(Event{Kind: EventNodeAdded, LaneID: laneID, NodeID: node.ID})
	return node, true
}

// DeleteNode removes a node and every connection touching it. Idempotent.
func (b *Board) DeleteNode(laneID, nodeID string) bool {
	idx := b.laneIndex(laneID)
	if idx < 0 {
		return false
	}
	pos := b.lanes[idx].NodeIndex(nodeID)
	if pos < 0 {
		return false
	}
	b.lanes[idx].Nodes = slices.Delete(b.lanes[idx].Nodes, pos, pos+1)

	before := len(b.connections)
	b.connections = slices.DeleteFunc(b.connections, func(c domain.Connection) bool {
		return c.Touches(nodeID)
	})
	if b.selected == nodeID {
		b.selected = ""
	}
	if b.connect.StartID == nodeID {
		b.connect = ConnectState{Kind: Idle}
		b.pointer = nil
	}

	b.publish(Event{Kind: EventNodeRemoved, LaneID: laneID, NodeID: nodeID})
	if len(b.connections) != before {
		b.publish(Event{Kind: EventConnectionsChanged})
	}
	return true
}

// UpdateText sets a node label, searching every lane.
func (b *Board) UpdateText(nodeID, text string) bool {
	laneIdx, pos := b.locate(nodeID)
	if laneIdx < 0 {
		return false
	}
	b.lanes[laneIdx].Nodes[pos].Text = text
	b.publish(Event{Kind: EventNodeUpdated, LaneID: b.lanes[laneIdx].ID, NodeID: nodeID})
	return true
}

// MoveNode sets an absolute lane-relative position, floored at zero.
func (b *Board) MoveNode(nodeID string, x, y float64) bool {
	laneIdx, pos := b.locate(nodeID)
	if laneIdx < 0 {
		return false
	}
	x, y = domain.ClampPosition(x, y)
	node := &b.lanes[laneIdx].Nodes[pos]
	node.X, node.Y = x, y
	b.publish(Event{Kind: EventNodeMoved, LaneID: b.lanes[laneIdx].ID, NodeID: nodeID})
	return true
}

// ResizeLane sets a lane height, floored at domain.MinLaneHeight.
func (b *Board) ResizeLane(laneID string, height float64) bool {
	idx := b.laneIndex(laneID)
	if idx < 0 {
		return false
	}
	b.lanes[idx].Height = domain.ClampLaneHeight(height)
	b.publish(Event{Kind: EventLaneResized, LaneID: laneID})
	return true
}

// ToggleConnectMode flips connect mode, discarding any pending start and pointer.
// Entering connect mode also drops the style selection.
func (b *Board) ToggleConnectMode() bool {
	b.connectMode = !b.connectMode
	b.connect, _ = Transition(b.connect, ModeOff{})
	b.pointer = nil
	if b.connectMode && b.selected != "" {
		b.selected = ""
		b.publish(Event{Kind: EventSelectionChanged})
	}
	b.publish(Event{Kind: EventModeChanged})
	return b.connectMode
}

// ClickNode routes a node click: the connection protocol in connect mode,
// selection otherwise. It returns the connection created by this click, if any.
func (b *Board) ClickNode(nodeID string) (domain.Connection, bool) {
	if !b.connectMode {
		b.SelectNode(nodeID)
		return domain.Connection{}, false
	}
	if laneIdx, _ := b.locate(nodeID); laneIdx < 0 {
		return domain.Connection{}, false
	}
	next, link := Transition(b.connect, NodeClicked{NodeID: nodeID})
	b.connect = next
	if !next.Awaiting() {
		b.pointer = nil
	}
	b.publish(Event{Kind: EventPendingChanged, NodeID: nodeID})
	if link == nil {
		return domain.Connection{}, false
	}
	return b.addConnection(*link)
}

// Connect links two existing nodes directly, applying the same duplicate rule
// as the click protocol. Connect mode and any pending start are left untouched.
func (b *Board) Connect(from, to string) (domain.Connection, bool) {
	if laneIdx, _ := b.locate(from); laneIdx < 0 {
		return domain.Connection{}, false
	}
	if laneIdx, _ := b.locate(to); laneIdx < 0 {
		return domain.Connection{}, false
	}
	_, link := Transition(ConnectState{Kind: AwaitingTarget, StartID: from}, NodeClicked{NodeID: to})
	if link == nil {
		return domain.Connection{}, false
	}
	return b.addConnection(*link)
}

// MovePointer records the preview pointer while a start node is pending.
func (b *Board) MovePointer(x, y float64) bool {
	at := domain.Point{X: x, Y: y}
	next, _ := Transition(b.connect, PointerMoved{At: at})
	b.connect = next
	if !next.Awaiting() {
		return false
	}
	b.pointer = &at
	b.publish(Event{Kind: EventPendingChanged})
	return true
}

// CancelPending handles Escape: any pending start is discarded.
func (b *Board) CancelPending() bool {
	if !b.connect.Awaiting() && b.pointer == nil {
		return false
	}
	b.connect, _ = Transition(b.connect, EscapePressed{})
	b.pointer = nil
	b.publish(Event{Kind: EventPendingChanged})
	return true
}

// ClearConnections removes every connection and any pending start.
func (b *Board) ClearConnections() {
	b.connections = []domain.Connection{}
	b.connect = ConnectState{Kind: Idle}
	b.pointer = nil
	b.publish(Event{Kind: EventConnectionsChanged})
}

// Reset restores empty default lanes and clears connections, selection and pending state.
func (b *Board) Reset() {
	b.lanes = domain.DefaultLanesWithHeight(nil, b.laneHeight)
	b.connections = []domain.Connection{}
	b.selected = ""
	b.connect = ConnectState{Kind: Idle}
	b.pointer = nil
	b.publish(Event{Kind: EventReset})
}

// SelectNode toggles the style selection. Ignored in connect mode.
func (b *Board) SelectNode(nodeID string) {
	if b.connectMode {
		return
	}
	if laneIdx, _ := b.locate(nodeID); laneIdx < 0 {
		return
	}
	if b.selected == nodeID {
		b.selected = ""
	} else {
		b.selected = nodeID
	}
	b.publish(Event{Kind: EventSelectionChanged, NodeID: nodeID})
}

// ClearSelection drops the style selection.
func (b *Board) ClearSelection() {
	if b.selected == "" {
		return
	}
	b.selected = ""
	b.publish(Event{Kind: EventSelectionChanged})
}

// SetFill sets the selected node's fill colour.
func (b *Board) SetFill(color string) bool {
	return b.styleSelected(StylePatch{Fill: &color})
}

// SetBorder sets the selected node's border colour.
func (b *Board) SetBorder(color string) bool {
	return b.styleSelected(StylePatch{Border: &color})
}

// SetShape sets the selected node's shape.
func (b *Board) SetShape(shape domain.Shape) bool {
	return b.styleSelected(StylePatch{Shape: &shape})
}

// UpdateStyle applies a style patch to one node. Invalid values reject the whole patch.
func (b *Board) UpdateStyle(nodeID string, patch StylePatch) bool {
	laneIdx, pos := b.locate(nodeID)
	if laneIdx < 0 {
		return false
	}
	node := b.lanes[laneIdx].Nodes[pos]
	if patch.Shape != nil {
		if !patch.Shape.Valid() {
			return false
		}
		node.Shape = *patch.Shape
	}
	if patch.Fill != nil {
		fill, err := domain.NormalizeColor(*patch.Fill)
		if err != nil {
			return false
		}
		node.Fill = fill
	}
	if patch.Border != nil {
		border, err := domain.NormalizeColor(*patch.Border)
		if err != nil {
			return false
		}
		node.Border = border
	}
	b.lanes[laneIdx].Nodes[pos] = node
	b.publish(Event{Kind: EventNodeStyled, LaneID: b.lanes[laneIdx].ID, NodeID: nodeID})
	return true
}

// ActivateNode handles a double-click: it publishes the activation payload and
// reports whether inline editing may start (never in connect mode).
func (b *Board) ActivateNode(nodeID string) (Activation, bool) {
	laneIdx, pos := b.locate(nodeID)
	if laneIdx < 0 {
		return Activation{}, false
	}
	act := activationFor(b.lanes[laneIdx].Nodes[pos])
	b.publish(Event{Kind: EventNodeActivated, LaneID: b.lanes[laneIdx].ID, NodeID: nodeID, Activation: act})
	return *act, !b.connectMode
}

// ToggleLock flips the confirmed/locked flag.
func (b *Board) ToggleLock() bool {
	b.locked = !b.locked
	b.publish(Event{Kind: EventLockChanged})
	return b.locked
}

// Lanes returns a deep copy of the lanes.
func (b *Board) Lanes() []domain.Lane {
	return domain.CloneLanes(b.lanes)
}

// Connections returns a copy of the connection list.
func (b *Board) Connections() []domain.Connection {
	out := slices.Clone(b.connections)
	if out == nil {
		out = []domain.Connection{}
	}
	return out
}

// Node looks a node up by id across every lane.
func (b *Board) Node(nodeID string) (domain.Node, string, bool) {
	return domain.FindNode(b.lanes, nodeID)
}

// Selected returns the selected node id.
func (b *Board) Selected() (string, bool) {
	return b.selected, b.selected != ""
}

// ConnectMode reports whether node clicks pick connection endpoints.
func (b *Board) ConnectMode() bool {
	return b.connectMode
}

// ConnectState returns the protocol state.
func (b *Board) ConnectState() ConnectState {
	return b.connect
}

// Pending returns the in-progress connection, if a start node is picked.
func (b *Board) Pending() (Pending, bool) {
	if !b.connect.Awaiting() {
		return Pending{}, false
	}
	out := Pending{StartID: b.connect.StartID}
	if b.pointer != nil {
		p := *b.pointer
		out.Pointer = &p
	}
	return out, true
}

// Locked reports the confirm/lock flag.
func (b *Board) Locked() bool {
	return b.locked
}

// State returns a deep copy of the persistable board state.
func (b *Board) State() State {
	return State{
		Lanes:       b.Lanes(),
		Connections: b.Connections(),
		Locked:      b.locked,
	}
}

// Restore replaces board content with a saved state. Lanes are matched to the
// fixed lane order by id; connections with missing or repeated endpoints are dropped.
// Selection, connect mode and pending state are cleared.
func (b *Board) Restore(state State) {
	lanes := domain.DefaultLanesWithHeight(nil, b.laneHeight)
	nodeIDs := map[string]struct{}{}
	for i := range lanes {
		for _, saved := range state.Lanes {
			if saved.ID != lanes[i].ID {
				continue
			}
			lanes[i].Height = domain.ClampLaneHeight(saved.Height)
			for _, node := range saved.Nodes {
				if _, dup := nodeIDs[node.ID]; dup {
					continue
				}
				nodeIDs[node.ID] = struct{}{}
				lanes[i].Nodes = append(lanes[i].Nodes, node)
			}
		}
	}

	conns := []domain.Connection{}
	for _, c := range state.Connections {
		_, fromOK := nodeIDs[c.From]
		_, toOK := nodeIDs[c.To]
		if !fromOK || !toOK || c.From == c.To || domain.HasLink(conns, c.From, c.To) {
			continue
		}
		conns = append(conns, c)
	}

	b.lanes = lanes
	b.connections = conns
	b.locked = state.Locked
	b.selected = ""
	b.connectMode = false
	b.connect = ConnectState{Kind: Idle}
	b.pointer = nil
	b.publish(Event{Kind: EventRestored})
}

// styleSelected applies a patch to the selected node; no-op without a selection.
func (b *Board) styleSelected(patch StylePatch) bool {
	if b.selected == "" {
		return false
	}
	return b.UpdateStyle(b.selected, patch)
}

// addConnection appends a link unless the pair is already connected.
func (b *Board) addConnection(link Link) (domain.Connection, bool) {
	if domain.HasLink(b.connections, link.From, link.To) {
		return domain.Connection{}, false
	}
	conn, err := domain.NewConnection(b.connIDs(), link.From, link.To)
	if err != nil {
		return domain.Connection{}, false
	}
	b.connections = append(b.connections, conn)
	b.publish(Event{Kind: EventConnectionsChanged})
	return conn, true
}

// maxIDAttempts bounds how many generated ids may collide with existing nodes.
const maxIDAttempts = 1024

// nextNodeID draws ids until one is unused on this board; "" when the generator keeps colliding.
func (b *Board) nextNodeID() string {
	for range maxIDAttempts {
		id := b.nodeIDs()
		if laneIdx, _ := b.locate(id); laneIdx < 0 {
			return id
		}
	}
	return ""
}

// laneIndex finds a lane by id.
func (b *Board) laneIndex(laneID string) int {
	return slices.IndexFunc(b.lanes, func(l domain.Lane) bool { return l.ID == laneID })
}

// locate returns lane and node indexes for a node id, or -1, -1.
func (b *Board) locate(nodeID string) (int, int) {
	if nodeID == "" {
		return -1, -1
	}
	for i, lane := range b.lanes {
		if pos := lane.NodeIndex(nodeID); pos >= 0 {
			return i, pos
		}
	}
	return -1, -1
}
