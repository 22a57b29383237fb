// Package geometry provides the rectangle and affine-transform primitives used to move
// boxes between camera-frame space and model-input (crop) space.
package geometry

import "math"

// Point is a 2D point in pixel coordinates.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box in pixel coordinates.
// Left/Top is the minimum corner, Right/Bottom the maximum corner.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// NewRect builds a Rect from a corner and a size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float64 {
	return r.Right - r.Left
}

// Height returns the vertical extent of the box.
func (r Rect) Height() float64 {
	return r.Bottom - r.Top
}

// Area returns the box area, or 0 for an empty box.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Empty reports whether the box has no positive width or height.
func (r Rect) Empty() bool {
	return !(r.Width() > 0) || !(r.Height() > 0)
}

// Intersect returns the overlap of two boxes. The result is Empty when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		Left:   math.Max(r.Left, o.Left),
		Top:    math.Max(r.Top, o.Top),
		Right:  math.Min(r.Right, o.Right),
		Bottom: math.Min(r.Bottom, o.Bottom),
	}
}

// IoU returns the intersection-over-union of two boxes in [0, 1].
func IoU(a, b Rect) float64 {
	inter := a.Intersect(b).Area()
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
