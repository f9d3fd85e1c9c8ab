package domain

import "strings"

// DefaultNodeText is the label given to freshly added nodes.
const DefaultNodeText = "新目标"

// Point is a position in board units.
type Point struct {
	X float64
	Y float64
}

// Node is one positioned, styled strategy item inside a lane.
type Node struct {
	ID     string
	Text   string
	X      float64
	Y      float64
	Shape  Shape
	Fill   string
	Border string
}

// NodeInput holds the values used to construct a node.
type NodeInput struct {
	ID     string
	Text   string
	X      float64
	Y      float64
	Shape  Shape
	Fill   string
	Border string
}

// NewNode validates input and applies shape and colour defaults.
func NewNode(in NodeInput) (Node, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return Node{}, ErrInvalidID
	}
	if strings.TrimSpace(in.Text) == "" {
		return Node{}, ErrInvalidText
	}
	if in.X < 0 || in.Y < 0 {
		return Node{}, ErrInvalidPosition
	}
	if in.Shape == "" {
		in.Shape = ShapeCapsule
	}
	if !in.Shape.Valid() {
		return Node{}, ErrInvalidShape
	}
	fill, err := normalizeColor(in.Fill, DefaultFill)
	if err != nil {
		return Node{}, err
	}
	border, err := normalizeColor(in.Border, DefaultBorder)
	if err != nil {
		return Node{}, err
	}
	return Node{
		ID:     in.ID,
		Text:   in.Text,
		X:      in.X,
		Y:      in.Y,
		Shape:  in.Shape,
		Fill:   fill,
		Border: border,
	}, nil
}

// Position returns the node's top-left corner relative to its lane.
func (n Node) Position() Point {
	return Point{X: n.X, Y: n.Y}
}

// ClampPosition floors both coordinates at zero.
func ClampPosition(x, y float64) (float64, float64) {
	return max(0, x), max(0, y)
}
