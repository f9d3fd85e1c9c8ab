package domain

import (
	"slices"
	"strings"
)

// Shape identifies the outline a node is drawn with.
type Shape string

const (
	ShapeCapsule   Shape = "capsule"
	ShapeRectangle Shape = "rectangle"
	ShapeChevron   Shape = "chevron"
	ShapeTriangle  Shape = "triangle"
	ShapeDiamond   Shape = "diamond"
)

var validShapes = []Shape{ShapeCapsule, ShapeRectangle, ShapeChevron, ShapeTriangle, ShapeDiamond}

var shapeLabels = map[Shape]string{
	ShapeCapsule:   "胶囊",
	ShapeRectangle: "矩形",
	ShapeChevron:   "燕尾",
	ShapeTriangle:  "三角",
	ShapeDiamond:   "菱形",
}

// Shapes returns the style-panel shape order.
func Shapes() []Shape {
	return slices.Clone(validShapes)
}

// Valid reports whether the shape is one of the known variants.
func (s Shape) Valid() bool {
	return slices.Contains(validShapes, s)
}

// Label returns the display label shown in the style panel.
func (s Shape) Label() string {
	if label, ok := shapeLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseShape normalizes raw input into a known shape.
func ParseShape(raw string) (Shape, error) {
	shape := Shape(strings.ToLower(strings.TrimSpace(raw)))
	if !shape.Valid() {
		return "", ErrInvalidShape
	}
	return shape, nil
}
