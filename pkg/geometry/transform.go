package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// singularEpsilon is the smallest determinant magnitude accepted as invertible.
const singularEpsilon = 1e-12

// Transform is a 2D affine transform stored as a 3x3 homogeneous matrix
// whose last row is always (0, 0, 1). The zero value is not usable; use Identity.
type Transform struct {
	m *mat.Dense
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{m: mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})}
}

// Translate returns a pure translation.
func Translate(dx, dy float64) Transform {
	return Transform{m: mat.NewDense(3, 3, []float64{
		1, 0, dx,
		0, 1, dy,
		0, 0, 1,
	})}
}

// Scale returns a pure axis scale.
func Scale(sx, sy float64) Transform {
	return Transform{m: mat.NewDense(3, 3, []float64{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	})}
}

// Rotate returns a rotation by degrees about the origin. In y-down pixel
// coordinates a positive angle turns clockwise on screen.
func Rotate(degrees float64) Transform {
	cos, sin := rightAngleCosSin(degrees)
	return Transform{m: mat.NewDense(3, 3, []float64{
		cos, -sin, 0,
		sin, cos, 0,
		0, 0, 1,
	})}
}

// rightAngleCosSin returns exact values for multiples of 90 so that round trips
// through 90/180/270 rotations do not accumulate 1e-16 noise.
func rightAngleCosSin(degrees float64) (float64, float64) {
	switch math.Mod(math.Mod(degrees, 360)+360, 360) {
	case 0:
		return 1, 0
	case 90:
		return 0, 1
	case 180:
		return -1, 0
	case 270:
		return 0, -1
	}
	rad := degrees * math.Pi / 180
	return math.Cos(rad), math.Sin(rad)
}

// Then returns the transform that applies t first and next second.
func (t Transform) Then(next Transform) Transform {
	var out mat.Dense
	out.Mul(next.m, t.m)
	return Transform{m: &out}
}

// Apply maps a point through the transform.
func (t Transform) Apply(p Point) Point {
	a := t.Affine()
	return Point{
		X: a[0]*p.X + a[1]*p.Y + a[2],
		Y: a[3]*p.X + a[4]*p.Y + a[5],
	}
}

// MapRect maps all four corners of r and returns their bounding box.
func (t Transform) MapRect(r Rect) Rect {
	corners := [4]Point{
		t.Apply(Point{r.Left, r.Top}),
		t.Apply(Point{r.Right, r.Top}),
		t.Apply(Point{r.Right, r.Bottom}),
		t.Apply(Point{r.Left, r.Bottom}),
	}
	out := Rect{
		Left: corners[0].X, Top: corners[0].Y,
		Right: corners[0].X, Bottom: corners[0].Y,
	}
	for _, c := range corners[1:] {
		out.Left = math.Min(out.Left, c.X)
		out.Top = math.Min(out.Top, c.Y)
		out.Right = math.Max(out.Right, c.X)
		out.Bottom = math.Max(out.Bottom, c.Y)
	}
	return out
}

// Determinant returns the determinant of the linear part.
func (t Transform) Determinant() float64 {
	return mat.Det(t.m)
}

// Invert returns the inverse transform, or ErrSingularTransform when the
// transform collapses the plane.
func (t Transform) Invert() (Transform, error) {
	if math.Abs(t.Determinant()) < singularEpsilon {
		return Transform{}, ErrSingularTransform
	}
	var inv mat.Dense
	if err := inv.Inverse(t.m); err != nil {
		// mat.Condition is a warning for ill-conditioned but still invertible input
		if _, ok := err.(mat.Condition); !ok {
			return Transform{}, ErrSingularTransform
		}
	}
	return Transform{m: &inv}, nil
}

// Affine returns the top two rows as {a, b, tx, c, d, ty}, the layout
// expected by image warping routines.
func (t Transform) Affine() [6]float64 {
	return [6]float64{
		t.m.At(0, 0), t.m.At(0, 1), t.m.At(0, 2),
		t.m.At(1, 0), t.m.At(1, 1), t.m.At(1, 2),
	}
}

// Valid reports whether the transform has been initialised.
func (t Transform) Valid() bool {
	return t.m != nil
}
