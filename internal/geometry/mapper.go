package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MapPoint converts a point in src space into screen coordinates inside the
// destination viewport.
//
//	screen.x = vp.X + p.X*zoom
//	screen.y = vp.Y + (src.Height - p.Y)*zoom   when src's Y axis disagrees with the screen
//	screen.y = vp.Y + p.Y*zoom                  otherwise
//
// The viewport size does not enter the formula; it only bounds where the
// result is expected to land when zoom is the viewport's fit zoom.
func MapPoint(p Point, src Space, vp Viewport, zoom float64) Point {
	x := vp.X + p.X*zoom
	if src.FlipsY() {
		return Point{X: x, Y: vp.Y + (src.Height-p.Y)*zoom}
	}
	return Point{X: x, Y: vp.Y + p.Y*zoom}
}

// UnmapPoint is the inverse of MapPoint for the same space, viewport and zoom.
func UnmapPoint(p Point, src Space, vp Viewport, zoom float64) Point {
	x := (p.X - vp.X) / zoom
	if src.FlipsY() {
		return Point{X: x, Y: src.Height - (p.Y-vp.Y)/zoom}
	}
	return Point{X: x, Y: (p.Y - vp.Y) / zoom}
}

// Mapping is a 2D affine transform between two coordinate spaces, kept as a
// 3x3 homogeneous matrix so mappings can be composed.
type Mapping struct {
	m *mat.Dense
}

func newMapping(a, b, tx, c, d, ty float64) *Mapping {
	return &Mapping{m: mat.NewDense(3, 3, []float64{
		a, b, tx,
		c, d, ty,
		0, 0, 1,
	})}
}

// NewMapping returns the mapping that MapPoint applies for src, vp and zoom.
func NewMapping(src Space, vp Viewport, zoom float64) (*Mapping, error) {
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return nil, fmt.Errorf("%w: zoom %g for %s space", ErrInvalidConfiguration, zoom, src.Name)
	}
	if src.FlipsY() {
		return newMapping(zoom, 0, vp.X, 0, -zoom, vp.Y+src.Height*zoom), nil
	}
	return newMapping(zoom, 0, vp.X, 0, zoom, vp.Y), nil
}

// Scale returns a mapping that multiplies X by sx and Y by sy.
func Scale(sx, sy float64) *Mapping {
	return newMapping(sx, 0, 0, 0, sy, 0)
}

// LevelToReference scales pyramid-level coordinates into reference-image
// coordinates. Each level halves the previous one, so the factor is 2^level.
func LevelToReference(level int) *Mapping {
	f := math.Ldexp(1, level)
	return Scale(f, f)
}

// Map applies the mapping to p.
func (m *Mapping) Map(p Point) Point {
	v := mat.NewVecDense(3, []float64{p.X, p.Y, 1})
	var out mat.VecDense
	out.MulVec(m.m, v)
	return Point{X: out.AtVec(0), Y: out.AtVec(1)}
}

// Then returns the mapping that applies m first and next second.
func (m *Mapping) Then(next *Mapping) *Mapping {
	var c mat.Dense
	c.Mul(next.m, m.m)
	return &Mapping{m: &c}
}
