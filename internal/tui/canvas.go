package tui

import (
	"math"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/evanschultz/scorecard/internal/app"
	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/evanschultz/scorecard/internal/geometry"
	"github.com/mattn/go-runewidth"
)

// Board palette.
const (
	laneTitleColor   = "#374151"
	laneRuleColor    = "#cbd5e1"
	handleColor      = "#94a3b8"
	connectorColor   = "#475569"
	pendingColor     = "#f59e0b"
	nodeTextColor    = "#111827"
	selectedColor    = "#db2777"
	focusedColor     = "#2563eb"
	pendingNodeColor = "#d97706"
)

// cell is one terminal cell of the board canvas. A zero rune marks the
// second column of a wide rune.
type cell struct {
	r    rune
	fg   string
	bg   string
	bold bool
}

// canvas is a rune grid in board cells. Later draws win, so connectors are
// drawn before node boxes.
type canvas struct {
	w, h  int
	cells [][]cell
}

// cellRect is a box in whole cells; col1 and row1 are exclusive.
type cellRect struct {
	col0, row0 int
	col1, row1 int
}

func (r cellRect) contains(col, row int) bool {
	return col >= r.col0 && col < r.col1 && row >= r.row0 && row < r.row1
}

func newCanvas(w, h int) *canvas {
	w, h = max(1, w), max(1, h)
	c := &canvas{w: w, h: h, cells: make([][]cell, h)}
	for row := range c.cells {
		c.cells[row] = make([]cell, w)
		for col := range c.cells[row] {
			c.cells[row][col] = cell{r: ' '}
		}
	}
	return c
}

func (c *canvas) inBounds(col, row int) bool {
	return col >= 0 && col < c.w && row >= 0 && row < c.h
}

// set writes one rune, keeping the cell background. Wide runes claim the next cell.
func (c *canvas) set(col, row int, r rune, fg string, bold bool) {
	if !c.inBounds(col, row) {
		return
	}
	c.clearWide(col, row)
	target := &c.cells[row][col]
	target.r, target.fg, target.bold = r, fg, bold
	if runewidth.RuneWidth(r) == 2 {
		if !c.inBounds(col+1, row) {
			target.r = ' '
			return
		}
		c.clearWide(col+1, row)
		next := &c.cells[row][col+1]
		next.r, next.fg, next.bold, next.bg = 0, fg, bold, target.bg
	}
}

// clearWide blanks whichever half of a wide rune would be split by writing at col.
func (c *canvas) clearWide(col, row int) {
	if c.cells[row][col].r == 0 && col > 0 {
		c.cells[row][col-1].r = ' '
	}
	if runewidth.RuneWidth(c.cells[row][col].r) == 2 && col+1 < c.w {
		c.cells[row][col+1].r = ' '
	}
}

// fill paints the background of a cell range.
func (c *canvas) fill(rect cellRect, bg string) {
	col0, col1 := max(0, rect.col0), min(c.w, rect.col1)
	for row := max(0, rect.row0); row < min(c.h, rect.row1); row++ {
		if col0 < col1 {
			c.clearWide(col0, row)
			c.clearWide(col1-1, row)
		}
		for col := col0; col < col1; col++ {
			c.cells[row][col] = cell{r: ' ', bg: bg}
		}
	}
}

// text writes s from col, stopping before limit.
func (c *canvas) text(col, row int, s, fg string, bold bool, limit int) {
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > limit {
			return
		}
		c.set(col, row, r, fg, bold)
		col += w
	}
}

// render returns rows [top, top+rows) clipped to width columns.
func (c *canvas) render(top, rows, width int) []string {
	out := make([]string, 0, rows)
	for row := top; row < top+rows; row++ {
		if row < 0 || row >= c.h {
			out = append(out, "")
			continue
		}
		out = append(out, c.renderRow(c.cells[row][:min(c.w, max(0, width))]))
	}
	return out
}

// renderRow groups equally styled cells into runs and styles each run once.
func (c *canvas) renderRow(cells []cell) string {
	var b strings.Builder
	var run strings.Builder
	var style cell
	flush := func() {
		if run.Len() == 0 {
			return
		}
		b.WriteString(cellStyle(style).Render(run.String()))
		run.Reset()
	}
	for i, cl := range cells {
		if cl.r == 0 {
			continue
		}
		if i > 0 && (cl.fg != style.fg || cl.bg != style.bg || cl.bold != style.bold) {
			flush()
		}
		style = cl
		run.WriteRune(cl.r)
	}
	flush()
	return b.String()
}

func cellStyle(cl cell) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(cl.bold)
	if cl.fg != "" {
		style = style.Foreground(lipgloss.Color(cl.fg))
	}
	if cl.bg != "" {
		style = style.Background(lipgloss.Color(cl.bg))
	}
	return style
}

// toCells converts a board rectangle to the cells it covers, at least 3x3.
func toCells(rect geometry.Rect, metrics geometry.Metrics) cellRect {
	col0, row0 := metrics.ToCell(domain.Point{X: rect.X, Y: rect.Y})
	col1 := int(math.Ceil(rect.Right() / metrics.CharWidth))
	row1 := int(math.Ceil(rect.Bottom() / metrics.LineHeight))
	return cellRect{col0: col0, row0: row0, col1: max(col0+3, col1), row1: max(row0+3, row1)}
}

// laneCells is the cell band a lane covers.
func laneCells(lane geometry.LaneBox, metrics geometry.Metrics) cellRect {
	col0, row0 := metrics.ToCell(domain.Point{X: lane.Rect.X, Y: lane.Rect.Y})
	return cellRect{
		col0: col0,
		row0: row0,
		col1: int(math.Ceil(lane.Rect.Right() / metrics.CharWidth)),
		row1: int(math.Ceil(lane.Rect.Bottom() / metrics.LineHeight)),
	}
}

// cellCenter is the board point at the middle of a cell.
func cellCenter(metrics geometry.Metrics, col, row int) domain.Point {
	p := metrics.FromCell(col, row)
	return domain.Point{X: p.X + metrics.CharWidth/2, Y: p.Y + metrics.LineHeight/2}
}

// nodeAtCell returns the topmost node drawn over a cell.
func nodeAtCell(layout geometry.Layout, col, row int) (geometry.NodeBox, bool) {
	nodes := layout.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if toCells(nodes[i].Rect, layout.Metrics).contains(col, row) {
			return nodes[i], true
		}
	}
	return geometry.NodeBox{}, false
}

// handleAtCell reports the lane whose bottom row is the cell, outside its title column.
func handleAtCell(layout geometry.Layout, col, row int) (string, bool) {
	titleCols := int(math.Ceil(layout.Metrics.TitleWidth / layout.Metrics.CharWidth))
	for _, lane := range layout.Lanes {
		rect := laneCells(lane, layout.Metrics)
		if row == rect.row1-1 && col >= titleCols && col < rect.col1 {
			return lane.ID, true
		}
	}
	return "", false
}

// boardRows is the height of the whole board in cells.
func boardRows(layout geometry.Layout) int {
	return int(math.Ceil(layout.Height / layout.Metrics.LineHeight))
}

// drawScene paints lanes, connectors and nodes for one scene.
func drawScene(scene app.Scene, focusID string) *canvas {
	layout := scene.Layout
	metrics := layout.Metrics
	c := newCanvas(
		int(math.Ceil(layout.Width/metrics.CharWidth)),
		boardRows(layout),
	)
	titleCols := int(math.Ceil(metrics.TitleWidth / metrics.CharWidth))

	for _, lane := range layout.Lanes {
		rect := laneCells(lane, metrics)
		bg := domain.LaneBackground(lane.ColorClass)
		c.fill(rect, bg)
		c.text(1, rect.row0+1, lane.Title, laneTitleColor, true, titleCols-1)
		for row := rect.row0; row < rect.row1; row++ {
			c.set(titleCols-1, row, '│', laneRuleColor, false)
		}
		for col := titleCols; col < rect.col1; col++ {
			c.set(col, rect.row1-1, '╌', handleColor, false)
		}
	}

	for _, path := range scene.Paths {
		drawConnector(c, layout, path, connectorColor)
	}
	if scene.Pending != nil {
		drawConnector(c, layout, *scene.Pending, pendingColor)
	}

	for _, box := range layout.Nodes() {
		accent := ""
		switch box.Node.ID {
		case scene.PendingStart:
			accent = pendingNodeColor
		case scene.Selected:
			accent = selectedColor
		case focusID:
			accent = focusedColor
		}
		drawNode(c, box, metrics, accent)
	}
	return c
}

// drawConnector samples a path's curve into cells and marks the approach end.
func drawConnector(c *canvas, layout geometry.Layout, path geometry.Path, fg string) {
	metrics := layout.Metrics
	curve := path.Curve
	startCol, startRow := metrics.ToCell(curve.Start)
	endCol, endRow := metrics.ToCell(curve.End)
	segments := 2*(abs(endCol-startCol)+abs(endRow-startRow)) + 8

	prevCol, prevRow := startCol, startRow
	drawn := 0
	for _, p := range curve.Sample(segments) {
		col, row := metrics.ToCell(p)
		if col == prevCol && row == prevRow && drawn > 0 {
			continue
		}
		glyph := connectorGlyph(col-prevCol, row-prevRow)
		if !path.Dashed || drawn%2 == 0 {
			c.set(col, row, glyph, fg, false)
		}
		prevCol, prevRow = col, row
		drawn++
	}

	tip := curve.EndTangent()
	arrow := arrowGlyph(tip)
	if to, ok := layout.Node(path.To); ok && path.To != "" {
		rect := toCells(to.Rect, metrics)
		col := (rect.col0 + rect.col1) / 2
		if tip.Y >= 0 {
			c.set(col, rect.row0-1, arrow, fg, true)
		} else {
			c.set(col, rect.row1, arrow, fg, true)
		}
		return
	}
	c.set(endCol, endRow, arrow, fg, true)
}

func connectorGlyph(dc, dr int) rune {
	switch {
	case dc == 0:
		return '│'
	case dr == 0:
		return '─'
	case (dc > 0) == (dr > 0):
		return '╲'
	default:
		return '╱'
	}
}

func arrowGlyph(dir domain.Point) rune {
	if math.Abs(dir.X) > math.Abs(dir.Y) {
		if dir.X > 0 {
			return '▶'
		}
		return '◀'
	}
	if dir.Y < 0 {
		return '▲'
	}
	return '▼'
}

// drawNode paints one card: shape outline, fill and centred label.
func drawNode(c *canvas, box geometry.NodeBox, metrics geometry.Metrics, accent string) {
	rect := toCells(box.Rect, metrics)
	fill := colorOr(box.Node.Fill, "#ffffff")
	border := colorOr(box.Node.Border, handleColor)
	bold := accent != ""
	if accent != "" {
		border = accent
	}
	c.fill(rect, fill)

	edge := shapeBorder(box.Node.Shape)
	last := rect.col1 - 1
	bottom := rect.row1 - 1
	for col := rect.col0 + 1; col < last; col++ {
		c.set(col, rect.row0, firstRune(edge.Top), border, bold)
		c.set(col, bottom, firstRune(edge.Bottom), border, bold)
	}
	for row := rect.row0 + 1; row < bottom; row++ {
		c.set(rect.col0, row, firstRune(edge.Left), border, bold)
		c.set(last, row, firstRune(edge.Right), border, bold)
	}
	c.set(rect.col0, rect.row0, firstRune(edge.TopLeft), border, bold)
	c.set(last, rect.row0, firstRune(edge.TopRight), border, bold)
	c.set(rect.col0, bottom, firstRune(edge.BottomLeft), border, bold)
	c.set(last, bottom, firstRune(edge.BottomRight), border, bold)

	inner := rect.row1 - rect.row0 - 2
	lines := box.Lines
	if len(lines) > inner {
		lines = lines[:max(0, inner)]
	}
	top := rect.row0 + 1 + (inner-len(lines))/2
	for i, line := range lines {
		width := runewidth.StringWidth(line)
		col := rect.col0 + 1 + max(0, (rect.col1-rect.col0-2-width)/2)
		c.text(col, top+i, line, nodeTextColor, false, last)
	}
}

// shapeBorder picks the outline characters for a shape.
func shapeBorder(shape domain.Shape) lipgloss.Border {
	switch shape {
	case domain.ShapeRectangle:
		return lipgloss.NormalBorder()
	case domain.ShapeChevron:
		return lipgloss.Border{
			Top: "─", Bottom: "─", Left: "❯", Right: "❯",
			TopLeft: "─", TopRight: "╮", BottomLeft: "─", BottomRight: "╯",
		}
	case domain.ShapeTriangle:
		return lipgloss.Border{
			Top: "─", Bottom: "▁", Left: "╱", Right: "╲",
			TopLeft: "╱", TopRight: "╲", BottomLeft: "╱", BottomRight: "╲",
		}
	case domain.ShapeDiamond:
		return lipgloss.Border{
			Top: "─", Bottom: "─", Left: "❮", Right: "❯",
			TopLeft: "╱", TopRight: "╲", BottomLeft: "╲", BottomRight: "╱",
		}
	default:
		return lipgloss.RoundedBorder()
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ' '
}

// colorOr resolves a stored colour to hex, or fallback when it does not parse.
func colorOr(raw, fallback string) string {
	hex, err := domain.ColorHex(raw)
	if err != nil {
		return fallback
	}
	return hex
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
