// Package render draws the board to a PNG image.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanschultz/scorecard/internal/app"
	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/evanschultz/scorecard/internal/geometry"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// Drawing constants in board units.
const (
	Margin          = 24.0
	NodeStroke      = 2.0
	ConnectorStroke = 2.0
	ChevronNotch    = 14.0
	RectangleRadius = 4.0
	DefaultFontSize = 12.0
	laneBorderWidth = 1.0
)

// Fixed colours.
const (
	connectorColor = "#475569"
	pendingColor   = "#2563eb"
	selectedColor  = "hsl(215, 60%, 45%)"
	laneBorder     = "#e2e8f0"
	titleColor     = "#334155"
	textColor      = "#0f172a"
)

// Options holds configuration for a renderer.
type Options struct {
	FontPath string
	FontSize float64
	Scale    float64
}

// Renderer draws board scenes.
type Renderer struct {
	face  font.Face
	scale float64
}

// New loads the configured font, falling back to Go Mono.
func New(opts Options) (*Renderer, error) {
	data := gomono.TTF
	if path := strings.TrimSpace(opts.FontPath); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %q: %w", path, err)
		}
		data = raw
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	size := opts.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    size,
		Hinting: font.HintingFull,
	})
	return &Renderer{face: face, scale: scale}, nil
}

// Bounds returns the output image size in pixels for a layout.
func (r *Renderer) Bounds(layout geometry.Layout) (int, int) {
	w := int((layout.Width + 2*Margin) * r.scale)
	h := int((layout.Height + 2*Margin) * r.scale)
	return max(w, 1), max(h, 1)
}

// Draw paints a scene onto a new context.
func (r *Renderer) Draw(scene app.Scene) *gg.Context {
	w, h := r.Bounds(scene.Layout)
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(r.face)
	dc.Scale(r.scale, r.scale)
	dc.Translate(Margin, Margin)

	for _, lane := range scene.Layout.Lanes {
		r.drawLane(dc, lane)
	}
	for _, path := range scene.Paths {
		drawConnector(dc, path, connectorColor)
	}
	if scene.Pending != nil {
		drawConnector(dc, *scene.Pending, pendingColor)
	}
	for _, box := range scene.Layout.Nodes() {
		r.drawNode(dc, box, box.Node.ID == scene.Selected || box.Node.ID == scene.PendingStart)
	}
	return dc
}

// Encode writes a scene as PNG.
func (r *Renderer) Encode(w io.Writer, scene app.Scene) error {
	if err := r.Draw(scene).EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SaveFile writes a scene as PNG to path, creating parent directories.
func (r *Renderer) SaveFile(path string, scene app.Scene) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("png path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create render dir: %w", err)
	}
	if err := r.Draw(scene).SavePNG(path); err != nil {
		return fmt.Errorf("save png %q: %w", path, err)
	}
	return nil
}

// drawLane paints a lane background, border and title column.
func (r *Renderer) drawLane(dc *gg.Context, lane geometry.LaneBox) {
	rect := lane.Rect
	setColor(dc, domain.LaneBackground(lane.ColorClass))
	dc.DrawRectangle(rect.X, rect.Y, rect.W, rect.H)
	dc.Fill()

	setColor(dc, laneBorder)
	dc.SetLineWidth(laneBorderWidth)
	dc.DrawRectangle(rect.X, rect.Y, rect.W, rect.H)
	dc.Stroke()
	dc.DrawLine(lane.Content.X, rect.Y, lane.Content.X, rect.Bottom())
	dc.Stroke()

	setColor(dc, titleColor)
	dc.DrawStringAnchored(lane.Title, lane.Content.X/2, rect.Y+rect.H/2, 0.5, 0.5)
}

// drawNode fills and outlines one node shape and centres its label.
func (r *Renderer) drawNode(dc *gg.Context, box geometry.NodeBox, highlighted bool) {
	shapePath(dc, box.Node.Shape, box.Rect)
	setColor(dc, box.Node.Fill)
	dc.FillPreserve()
	if highlighted {
		setColor(dc, selectedColor)
	} else {
		setColor(dc, box.Node.Border)
	}
	dc.SetLineWidth(NodeStroke)
	dc.Stroke()

	setColor(dc, textColor)
	center := box.Rect.Center()
	lineHeight := dc.FontHeight() * 1.25
	top := center.Y - lineHeight*float64(len(box.Lines)-1)/2
	for i, line := range box.Lines {
		dc.DrawStringAnchored(line, center.X, top+float64(i)*lineHeight, 0.5, 0.35)
	}
}

// shapePath traces a node outline without painting it.
func shapePath(dc *gg.Context, shape domain.Shape, rect geometry.Rect) {
	x, y, w, h := rect.X, rect.Y, rect.W, rect.H
	switch shape {
	case domain.ShapeRectangle:
		dc.DrawRoundedRectangle(x, y, w, h, RectangleRadius)
	case domain.ShapeChevron:
		notch := min(ChevronNotch, w/3)
		polygon(dc, x, y, x+w-notch, y, x+w, y+h/2, x+w-notch, y+h, x, y+h, x+notch, y+h/2)
	case domain.ShapeTriangle:
		polygon(dc, x+w/2, y, x+w, y+h, x, y+h)
	case domain.ShapeDiamond:
		polygon(dc, x+w/2, y, x+w, y+h/2, x+w/2, y+h, x, y+h/2)
	default:
		dc.DrawRoundedRectangle(x, y, w, h, h/2)
	}
}

// polygon traces a closed path through coordinate pairs.
func polygon(dc *gg.Context, coords ...float64) {
	dc.NewSubPath()
	dc.MoveTo(coords[0], coords[1])
	for i := 2; i+1 < len(coords); i += 2 {
		dc.LineTo(coords[i], coords[i+1])
	}
	dc.ClosePath()
}

// drawConnector strokes a Bezier connector and fills its arrowhead.
func drawConnector(dc *gg.Context, path geometry.Path, hex string) {
	c := path.Curve
	setColor(dc, hex)
	dc.SetLineWidth(ConnectorStroke)
	if path.Dashed {
		dc.SetDash(6, 4)
	}
	dc.NewSubPath()
	dc.MoveTo(c.Start.X, c.Start.Y)
	dc.CubicTo(c.C1.X, c.C1.Y, c.C2.X, c.C2.Y, c.End.X, c.End.Y)
	dc.Stroke()
	dc.SetDash()

	a := path.Arrow
	polygon(dc, a[0].X, a[0].Y, a[1].X, a[1].Y, a[2].X, a[2].Y)
	dc.Fill()
}

// setColor applies a colour string, falling back to black when it does not parse.
func setColor(dc *gg.Context, raw string) {
	c, err := domain.ParseColor(raw)
	if err != nil {
		dc.SetColor(color.Black)
		return
	}
	dc.SetColor(c)
}
