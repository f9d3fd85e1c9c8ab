package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/scorecard/internal/advice"
	"github.com/evanschultz/scorecard/internal/app"
	"github.com/evanschultz/scorecard/internal/board"
	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/evanschultz/scorecard/internal/geometry"
	"github.com/evanschultz/scorecard/internal/interact"
)

// Service is the board surface the TUI drives.
type Service interface {
	Scene() app.Scene
	Do(func(*board.Board))
	AddNode(laneID string) (domain.Node, error)
	DeleteNode(laneID, nodeID string) error
	UpdateNode(nodeID string, patch app.NodePatch) (domain.Node, error)
	ResizeLane(laneID string, height float64) (domain.Lane, error)
	ClearConnections()
	Reset()
	ToggleLock() bool
	ActivateNode(nodeID string) (board.Activation, error)
	Advice(question string) (advice.ChatRequest, error)
	SaveSnapshot(ctx context.Context, name string) (app.SnapshotInfo, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeEdit
	modeAsk
	modeAdvice
)

// Screen rows above and below the board.
const (
	headerRows = 2
	footerRows = 3
)

// styleKind names one style-panel control.
type styleKind int

const (
	styleFill styleKind = iota
	styleBorder
	styleShape
)

// Model represents model data used by this package.
type Model struct {
	svc Service

	keys     keyMap
	help     help.Model
	editor   textarea.Model
	markdown *markdownRenderer

	now            func() time.Time
	copyText       func(string) error
	doubleClick    time.Duration
	clicks         *interact.ClickTracker
	snapshotPrefix string

	ready     bool
	width     int
	height    int
	mode      inputMode
	status    string
	scrollRow int
	focusID   string

	drag     interact.Drag
	dragLane string
	resize   interact.LaneResize
	edit     interact.EditSession

	adviceReq *advice.ChatRequest
}

// actionMsg reports the outcome of an asynchronous action.
type actionMsg struct {
	status string
	err    error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 500
	editor.SetWidth(48)
	editor.SetHeight(4)
	m := Model{
		svc:            svc,
		keys:           newKeyMap(),
		help:           h,
		editor:         editor,
		markdown:       &markdownRenderer{},
		now:            time.Now,
		copyText:       defaultClipboard,
		doubleClick:    interact.DefaultDoubleClickInterval,
		snapshotPrefix: "tui",
		status:         "ready",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.clicks = interact.NewClickTracker(m.doubleClick, m.now)
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.editor.SetWidth(clamp(msg.Width-12, 20, 72))
		m.scrollRow = m.clampScroll(m.scrollRow)
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			return m, nil
		}
		m.status = msg.status
		return m, nil

	case tea.KeyPressMsg:
		switch m.mode {
		case modeEdit, modeAsk:
			return m.handleEditorKey(msg)
		case modeAdvice:
			return m.handleAdviceKey(msg)
		default:
			return m.handleNormalModeKey(msg)
		}

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		switch msg.Button {
		case tea.MouseWheelUp:
			m.scrollRow = m.clampScroll(m.scrollRow - 2)
		case tea.MouseWheelDown:
			m.scrollRow = m.clampScroll(m.scrollRow + 2)
		}
		return m, nil

	default:
		return m, nil
	}
}

// handleNormalModeKey handles board keys outside any modal.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.toggleHelp), key.Matches(msg, m.keys.cancel):
			m.help.ShowAll = false
		}
		return m, nil
	}

	if laneID, ok := m.keys.laneForKey(msg); ok {
		node, err := m.svc.AddNode(laneID)
		if err != nil {
			m.status = "error: " + err.Error()
			return m, nil
		}
		m.focusID = node.ID
		m.status = "added card to " + laneTitle(m.svc.Scene().Layout, laneID)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil

	case key.Matches(msg, m.keys.nextNode):
		m.cycleFocus(1)
		return m, nil

	case key.Matches(msg, m.keys.prevNode):
		m.cycleFocus(-1)
		return m, nil

	case key.Matches(msg, m.keys.editNode):
		box, ok := m.focused(m.svc.Scene())
		if !ok {
			m.status = "no card to edit"
			return m, nil
		}
		return m.startEdit(box.Node.ID)

	case key.Matches(msg, m.keys.deleteNode):
		box, ok := m.focused(m.svc.Scene())
		if !ok {
			m.status = "no card to delete"
			return m, nil
		}
		if err := m.svc.DeleteNode(box.LaneID, box.Node.ID); err != nil {
			m.status = "error: " + err.Error()
			return m, nil
		}
		m.focusID = ""
		m.status = fmt.Sprintf("deleted %q", box.Node.Text)
		return m, nil

	case key.Matches(msg, m.keys.selectNode):
		scene := m.svc.Scene()
		box, ok := m.focused(scene)
		if !ok {
			m.status = "no card to select"
			return m, nil
		}
		if scene.ConnectMode {
			m.status = "styling is off in connect mode"
			return m, nil
		}
		m.clickNode(box.Node.ID)
		return m, nil

	case key.Matches(msg, m.keys.connectMode):
		var on bool
		m.svc.Do(func(b *board.Board) { on = b.ToggleConnectMode() })
		m.clicks.Reset()
		if on {
			m.status = "connect mode: click a start card, then a target"
		} else {
			m.status = "connect mode off"
		}
		return m, nil

	case key.Matches(msg, m.keys.connectFocused):
		scene := m.svc.Scene()
		if !scene.ConnectMode {
			m.status = "press " + m.keys.connectMode.Help().Key + " to enter connect mode first"
			return m, nil
		}
		box, ok := m.focused(scene)
		if !ok {
			m.status = "no card to connect"
			return m, nil
		}
		m.clickNode(box.Node.ID)
		return m, nil

	case key.Matches(msg, m.keys.cancel):
		var cancelled bool
		m.svc.Do(func(b *board.Board) {
			if cancelled = b.CancelPending(); !cancelled {
				b.ClearSelection()
			}
		})
		if cancelled {
			m.status = "pending connection cancelled"
		}
		return m, nil

	case key.Matches(msg, m.keys.clearConnections):
		m.svc.ClearConnections()
		m.status = "connections cleared"
		return m, nil

	case key.Matches(msg, m.keys.reset):
		m.svc.Reset()
		m.focusID = ""
		m.scrollRow = 0
		m.status = "board reset"
		return m, nil

	case key.Matches(msg, m.keys.toggleLock):
		if m.svc.ToggleLock() {
			m.status = "BSC locked and confirmed"
		} else {
			m.status = "BSC unlocked"
		}
		return m, nil

	case key.Matches(msg, m.keys.cycleFill):
		m.cycleStyle(styleFill)
		return m, nil

	case key.Matches(msg, m.keys.cycleBorder):
		m.cycleStyle(styleBorder)
		return m, nil

	case key.Matches(msg, m.keys.cycleShape):
		m.cycleStyle(styleShape)
		return m, nil

	case key.Matches(msg, m.keys.analyze):
		return m.openAdvice("")

	case key.Matches(msg, m.keys.ask):
		m.editor.Reset()
		m.editor.Placeholder = "ask the strategy advisor"
		m.mode = modeAsk
		cmd := m.editor.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.copyPrompt):
		return m, m.copyPromptCmd()

	case key.Matches(msg, m.keys.saveSnapshot):
		return m, m.saveSnapshotCmd()

	case key.Matches(msg, m.keys.scrollUp):
		m.scrollRow = m.clampScroll(m.scrollRow - max(1, m.viewRows()/2))
		return m, nil

	case key.Matches(msg, m.keys.scrollDown):
		m.scrollRow = m.clampScroll(m.scrollRow + max(1, m.viewRows()/2))
		return m, nil

	default:
		return m, nil
	}
}

// handleEditorKey routes keys while the label editor or question box is open.
func (m Model) handleEditorKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch interact.ClassifyKey(msg.String()) {
	case interact.KeyCommit:
		if m.mode == modeAsk {
			question := strings.TrimSpace(m.editor.Value())
			m.closeEditor()
			if question == "" {
				m.status = "question is empty"
				return m, nil
			}
			return m.openAdvice(question)
		}
		return m.commitEdit()

	case interact.KeyNewline:
		m.editor.InsertString("\n")
		m.edit.SetText(m.editor.Value())
		return m, nil

	case interact.KeyRevert:
		if m.mode == modeEdit {
			m.edit.Cancel()
			m.status = "edit reverted"
		}
		m.closeEditor()
		return m, nil

	default:
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		m.edit.SetText(m.editor.Value())
		return m, cmd
	}
}

// handleAdviceKey handles keys while the advice panel is open.
func (m Model) handleAdviceKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.copyPrompt):
		return m, m.copyPromptCmd()
	case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.analyze), key.Matches(msg, m.keys.quit):
		m.mode = modeNone
		return m, nil
	default:
		return m, nil
	}
}

// handleMouseClick starts a drag, a lane resize or a connect click.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseLeft || m.help.ShowAll {
		return m, nil
	}
	switch m.mode {
	case modeAdvice:
		m.mode = modeNone
		return m, nil
	case modeEdit:
		return m.commitEdit()
	case modeAsk:
		return m, nil
	}

	col, row, ok := m.cellAt(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	scene := m.svc.Scene()
	p := cellCenter(scene.Layout.Metrics, col, row)

	if box, ok := nodeAtCell(scene.Layout, col, row); ok {
		m.focusID = box.Node.ID
		if scene.ConnectMode {
			// Both clicks of a double-click still drive the connection
			// protocol; the second also activates without opening the editor.
			double := m.clicks.Click(box.Node.ID)
			m.clickNode(box.Node.ID)
			if double {
				return m.activateOnly(box.Node.ID)
			}
			return m, nil
		}
		pointer, _ := scene.Layout.ToLane(box.LaneID, p)
		if m.drag.Begin(box.Node.ID, pointer, box.Node.Position(), scene.ConnectMode, m.edit.Active()) {
			m.dragLane = box.LaneID
		}
		return m, nil
	}

	if laneID, ok := handleAtCell(scene.Layout, col, row); ok {
		if lane, ok := scene.Layout.Lane(laneID); ok {
			m.resize.Begin(laneID, p.Y, lane.Rect.H)
		}
		return m, nil
	}
	m.clicks.Reset()
	return m, nil
}

// handleMouseMotion moves the dragged card, resizes a lane or feeds the connect preview.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	col, row, ok := m.cellAt(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	scene := m.svc.Scene()
	p := cellCenter(scene.Layout.Metrics, col, row)

	switch {
	case m.drag.Active():
		pointer, ok := scene.Layout.ToLane(m.dragLane, p)
		if !ok {
			return m, nil
		}
		pos, ok := m.drag.Move(pointer)
		if !ok {
			return m, nil
		}
		if _, err := m.svc.UpdateNode(m.drag.NodeID(), app.NodePatch{X: &pos.X, Y: &pos.Y}); err != nil {
			m.status = "error: " + err.Error()
		}
	case m.resize.Active():
		laneID, height, ok := m.resize.Move(p.Y)
		if !ok {
			return m, nil
		}
		if _, err := m.svc.ResizeLane(laneID, height); err != nil {
			m.status = "error: " + err.Error()
		}
	case scene.PendingStart != "":
		m.svc.Do(func(b *board.Board) { b.MovePointer(p.X, p.Y) })
	}
	return m, nil
}

// handleMouseRelease ends drags. A release without movement is a click:
// the second click on the same card within the interval activates it.
func (m Model) handleMouseRelease(_ tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if m.resize.Active() {
		m.resize.End()
		m.status = "lane resized"
		return m, nil
	}
	if !m.drag.Active() {
		return m, nil
	}
	nodeID, moved := m.drag.End()
	m.dragLane = ""
	if moved {
		m.clicks.Reset()
		return m, nil
	}
	if m.clicks.Click(nodeID) {
		return m.activate(nodeID)
	}
	m.clickNode(nodeID)
	return m, nil
}

// clickNode routes a card click through the board: selection normally, the
// connection protocol in connect mode.
func (m *Model) clickNode(nodeID string) {
	var (
		conn    domain.Connection
		created bool
	)
	m.svc.Do(func(b *board.Board) { conn, created = b.ClickNode(nodeID) })
	scene := m.svc.Scene()
	switch {
	case created:
		m.status = fmt.Sprintf("connected %s → %s", nodeText(scene.Layout, conn.From), nodeText(scene.Layout, conn.To))
	case scene.PendingStart != "":
		m.status = fmt.Sprintf("from 「%s」: pick a target card", nodeText(scene.Layout, scene.PendingStart))
	case scene.ConnectMode:
		m.status = "no connection made"
	case scene.Selected == nodeID:
		m.status = fmt.Sprintf("selected 「%s」 for styling", nodeText(scene.Layout, nodeID))
	default:
		m.status = "selection cleared"
	}
}

// activate records a double-click for the advisor and opens the label editor.
func (m Model) activate(nodeID string) (tea.Model, tea.Cmd) {
	if _, err := m.svc.ActivateNode(nodeID); err != nil {
		m.status = "error: " + err.Error()
		return m, nil
	}
	return m.startEdit(nodeID)
}

// activateOnly publishes the activation and keeps the connect-mode status.
func (m Model) activateOnly(nodeID string) (tea.Model, tea.Cmd) {
	if _, err := m.svc.ActivateNode(nodeID); err != nil {
		m.status = "error: " + err.Error()
	}
	return m, nil
}

// startEdit opens the inline editor seeded with the card label.
func (m Model) startEdit(nodeID string) (tea.Model, tea.Cmd) {
	scene := m.svc.Scene()
	box, ok := scene.Layout.Node(nodeID)
	if !ok {
		m.status = "card not found"
		return m, nil
	}
	if scene.ConnectMode {
		m.status = "leave connect mode to edit"
		return m, nil
	}
	m.focusID = nodeID
	m.edit.Begin(nodeID, box.Node.Text)
	m.editor.Reset()
	m.editor.Placeholder = ""
	m.editor.SetValue(box.Node.Text)
	m.mode = modeEdit
	m.status = "editing: enter saves • shift+enter newline • esc reverts"
	cmd := m.editor.Focus()
	return m, cmd
}

// commitEdit saves the draft. A blank draft keeps the original label.
func (m Model) commitEdit() (tea.Model, tea.Cmd) {
	nodeID, text, changed := m.edit.Commit()
	m.closeEditor()
	if nodeID == "" {
		return m, nil
	}
	if !changed {
		m.status = "empty label reverted"
		return m, nil
	}
	if _, err := m.svc.UpdateNode(nodeID, app.NodePatch{Text: &text}); err != nil {
		m.status = "error: " + err.Error()
		return m, nil
	}
	m.status = "card updated"
	return m, nil
}

func (m *Model) closeEditor() {
	m.editor.Blur()
	m.editor.Reset()
	m.mode = modeNone
}

// openAdvice builds an advice request and shows it. A blank question analyzes the board.
func (m Model) openAdvice(question string) (tea.Model, tea.Cmd) {
	req, err := m.svc.Advice(question)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.adviceReq = &req
	m.mode = modeAdvice
	m.status = "advice request ready"
	return m, nil
}

// copyPromptCmd copies the last advice question to the clipboard.
func (m Model) copyPromptCmd() tea.Cmd {
	if m.adviceReq == nil {
		return func() tea.Msg {
			return actionMsg{err: errors.New("no advice request yet; press " + m.keys.analyze.Help().Key)}
		}
	}
	question := m.adviceReq.Question()
	write := m.copyText
	return func() tea.Msg {
		if err := write(question); err != nil {
			return actionMsg{err: fmt.Errorf("copy prompt: %w", err)}
		}
		return actionMsg{status: "prompt copied to clipboard"}
	}
}

// saveSnapshotCmd stores the board under a timestamped name.
func (m Model) saveSnapshotCmd() tea.Cmd {
	name := fmt.Sprintf("%s-%s", m.snapshotPrefix, m.now().UTC().Format("20060102-150405"))
	svc := m.svc
	return func() tea.Msg {
		info, err := svc.SaveSnapshot(context.Background(), name)
		if err != nil {
			return actionMsg{err: fmt.Errorf("save snapshot: %w", err)}
		}
		return actionMsg{status: fmt.Sprintf("saved snapshot %s (%d cards, %d connections)", info.Name, info.Nodes, info.Connections)}
	}
}

// cycleStyle advances the selected card's fill, border or shape.
func (m *Model) cycleStyle(kind styleKind) {
	scene := m.svc.Scene()
	box, ok := scene.Layout.Node(scene.Selected)
	if !ok {
		m.status = "select a card first (" + m.keys.selectNode.Help().Key + ")"
		return
	}
	var applied bool
	switch kind {
	case styleFill:
		next := nextColor(domain.FillPalette(), box.Node.Fill)
		m.svc.Do(func(b *board.Board) { applied = b.SetFill(next) })
		m.status = "fill " + next
	case styleBorder:
		next := nextColor(domain.BorderPalette(), box.Node.Border)
		m.svc.Do(func(b *board.Board) { applied = b.SetBorder(next) })
		m.status = "border " + next
	case styleShape:
		next := nextShape(box.Node.Shape)
		m.svc.Do(func(b *board.Board) { applied = b.SetShape(next) })
		m.status = "shape " + next.Label()
	}
	if !applied {
		m.status = "style unchanged"
	}
}

// nextColor returns the palette entry after current, or the first entry.
func nextColor(palette []string, current string) string {
	if len(palette) == 0 {
		return current
	}
	currentHex := colorOr(current, "")
	for i, swatch := range palette {
		if colorOr(swatch, "") == currentHex && currentHex != "" {
			return palette[(i+1)%len(palette)]
		}
	}
	return palette[0]
}

// nextShape returns the shape after current in panel order.
func nextShape(current domain.Shape) domain.Shape {
	shapes := domain.Shapes()
	for i, shape := range shapes {
		if shape == current {
			return shapes[(i+1)%len(shapes)]
		}
	}
	return shapes[0]
}

// focused returns the focused card, falling back to the first card.
func (m Model) focused(scene app.Scene) (geometry.NodeBox, bool) {
	if box, ok := scene.Layout.Node(m.focusID); ok {
		return box, true
	}
	nodes := scene.Layout.Nodes()
	if len(nodes) == 0 {
		return geometry.NodeBox{}, false
	}
	return nodes[0], true
}

// cycleFocus moves focus through cards in lane order and scrolls it into view.
func (m *Model) cycleFocus(delta int) {
	scene := m.svc.Scene()
	nodes := scene.Layout.Nodes()
	if len(nodes) == 0 {
		m.focusID = ""
		return
	}
	current := -1
	if box, ok := m.focused(scene); ok {
		for i, n := range nodes {
			if n.Node.ID == box.Node.ID {
				current = i
				break
			}
		}
	}
	next := nodes[wrapIndex(current, delta, len(nodes))]
	m.focusID = next.Node.ID
	rect := toCells(next.Rect, scene.Layout.Metrics)
	if rect.row0 < m.scrollRow {
		m.scrollRow = m.clampScroll(rect.row0)
	} else if rows := m.viewRows(); rows > 0 && rect.row1 > m.scrollRow+rows {
		m.scrollRow = m.clampScroll(rect.row1 - rows)
	}
	m.status = fmt.Sprintf("focus 「%s」", next.Node.Text)
}

// cellAt converts a screen position to a board cell.
func (m Model) cellAt(x, y int) (int, int, bool) {
	if y < headerRows || y >= headerRows+m.viewRows() || x < 0 {
		return 0, 0, false
	}
	return x, y - headerRows + m.scrollRow, true
}

// viewRows is the number of board rows visible on screen.
func (m Model) viewRows() int {
	return max(0, m.height-headerRows-footerRows)
}

// clampScroll keeps the scroll offset inside the board.
func (m Model) clampScroll(row int) int {
	total := boardRows(m.svc.Scene().Layout)
	return clamp(row, 0, max(0, total-m.viewRows()))
}

// View handles view.
func (m Model) View() tea.View {
	view := tea.NewView(m.renderView())
	view.MouseMode = tea.MouseModeCellMotion
	if m.ready && m.svc.Scene().ConnectMode {
		view.MouseMode = tea.MouseModeAllMotion
	}
	view.AltScreen = true
	return view
}

// renderView renders the full screen.
func (m Model) renderView() string {
	if !m.ready {
		return "loading..."
	}

	scene := m.svc.Scene()
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	focusID := ""
	if box, ok := m.focused(scene); ok {
		focusID = box.Node.ID
	}
	rows := m.viewRows()
	boardLines := drawScene(scene, focusID).render(m.scrollRow, rows, m.width)

	sections := []string{
		m.renderHeader(scene, accent, muted),
		m.renderPanelLine(scene, muted),
	}
	sections = append(sections, boardLines...)
	sections = append(sections, statusStyle.Render(truncate(m.status, max(1, m.width))))
	content := fitLines(strings.Join(sections, "\n"), max(1, m.height-footerRows+1))

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	fullContent := content + "\n" + helpLine
	overlay := ""
	switch {
	case m.help.ShowAll:
		overlay = m.renderHelpOverlay(accent, muted, dim, m.width-8)
	case m.mode == modeEdit || m.mode == modeAsk:
		overlay = m.renderEditorOverlay(accent, muted, dim)
	case m.mode == modeAdvice:
		overlay = m.renderAdviceOverlay(accent, muted, dim, m.width-8)
	}
	if overlay != "" {
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, m.height))
	}
	return fullContent
}

// renderHeader renders the title line with mode badges.
func (m Model) renderHeader(scene app.Scene, accent, muted color.Color) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	parts := []string{titleStyle.Render("scorecard · BSC 战略地图")}
	if scene.ConnectMode {
		parts = append(parts, badge.Foreground(lipgloss.Color(pendingColor)).Render("连线模式"))
	}
	if scene.Locked {
		parts = append(parts, badge.Foreground(accent).Render("已锁定并确认"))
	}
	nodes := len(scene.Layout.Nodes())
	parts = append(parts, lipgloss.NewStyle().Foreground(muted).Render(
		fmt.Sprintf("%d cards • %d connections", nodes, len(scene.Connections)),
	))
	return strings.Join(parts, "  ")
}

// renderPanelLine renders the style panel, or connect hints in connect mode.
func (m Model) renderPanelLine(scene app.Scene, muted color.Color) string {
	label := lipgloss.NewStyle().Foreground(muted)
	if scene.ConnectMode {
		if scene.PendingStart != "" {
			return label.Render(fmt.Sprintf("connect ▸ from 「%s」, pick a target • esc cancels", nodeText(scene.Layout, scene.PendingStart)))
		}
		return label.Render("connect ▸ click a start card, then a target")
	}
	box, ok := scene.Layout.Node(scene.Selected)
	if !ok {
		return label.Render("style ▸ no card selected (click or space)")
	}
	swatch := func(raw string) string {
		hex := colorOr(raw, "#ffffff")
		return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■") + " " + hex
	}
	return strings.Join([]string{
		label.Render("style ▸ 「" + truncate(box.Node.Text, 16) + "」"),
		label.Render("fill") + " " + swatch(box.Node.Fill),
		label.Render("border") + " " + swatch(box.Node.Border),
		label.Render("shape") + " " + box.Node.Shape.Label(),
		label.Render("(f/b/s)"),
	}, "  ")
}

// renderEditorOverlay renders the label editor or the question box.
func (m Model) renderEditorOverlay(accent, muted, dim color.Color) string {
	title := "Edit card"
	hint := "enter save • shift+enter newline • esc revert"
	if m.mode == modeAsk {
		title = "Ask the strategy advisor"
		hint = "enter send • esc cancel"
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render(title),
		m.editor.View(),
		lipgloss.NewStyle().Foreground(muted).Render(hint),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// renderAdviceOverlay renders the advice request through glamour.
func (m Model) renderAdviceOverlay(accent, muted, dim color.Color, maxWidth int) string {
	width := clamp(maxWidth, 40, 100)
	body := ""
	if m.adviceReq != nil {
		body = m.markdown.render(m.adviceReq.Markdown(), width-4)
	}
	if maxLines := m.height - 6; maxLines > 0 {
		body = fitLines(body, maxLines)
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render("AI 助手"),
		body,
		lipgloss.NewStyle().Foreground(muted).Render("y copy prompt • esc close"),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(accent, muted, dim color.Color, maxWidth int) string {
	width := clamp(maxWidth, 56, 110)
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)

	workflow := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Workflows"),
		"1. 1-4 add a card to a lane • drag cards with the mouse • drag a lane's ╌ edge to resize",
		"2. double-click or enter edits a card • the double-clicked card feeds the AI prompt",
		"3. c connect mode: click start then target • esc cancels • C clears all",
		"4. space or click selects a card • f/b/s cycle fill, border and shape",
		"5. a builds the AI analysis request • A asks a question • y copies the prompt",
		"6. S saves a snapshot • L locks and confirms the BSC • R resets",
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render("scorecard help"),
		"",
		hb.View(m.keys),
		"",
		lipgloss.NewStyle().Foreground(muted).Render(strings.Join(workflow, "\n")),
		lipgloss.NewStyle().Foreground(muted).Render("press ? or esc to close"),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// laneTitle returns the display title of a lane.
func laneTitle(layout geometry.Layout, laneID string) string {
	if lane, ok := layout.Lane(laneID); ok {
		return lane.Title
	}
	return laneID
}

// nodeText returns a card label, or its id when the card is gone.
func nodeText(layout geometry.Layout, nodeID string) string {
	if box, ok := layout.Node(nodeID); ok {
		return box.Node.Text
	}
	return nodeID
}

// wrapIndex steps from current by delta, wrapping within total.
func wrapIndex(current, delta, total int) int {
	if total <= 0 {
		return 0
	}
	if current < 0 {
		if delta < 0 {
			return total - 1
		}
		return 0
	}
	return ((current+delta)%total + total) % total
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
