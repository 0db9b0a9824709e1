package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfiguration is wrapped by every error caused by parameters that
// cannot produce valid geometry (non-positive sizes, too many pyramid levels,
// zero-area viewports).
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Point is a 2D coordinate in some coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// IsZero reports whether both coordinates are zero.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Size is an integer pixel extent.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the size has zero or negative area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Axis is the direction in which a space's Y coordinate grows.
type Axis int

const (
	// YDown: origin at the top edge, Y grows downward (image rows).
	YDown Axis = iota
	// YUp: origin at the bottom edge, Y grows upward (screen/GL convention).
	YUp
)

func (a Axis) String() string {
	if a == YUp {
		return "up"
	}
	return "down"
}

// ScreenAxis is the axis convention of the window every overlay is drawn into.
const ScreenAxis = YUp

// Space describes a named coordinate space with its extent and axis.
type Space struct {
	Name   string
	Width  float64
	Height float64
	Axis   Axis
}

// ReferenceSpace returns the space of a w x h reference image.
func ReferenceSpace(w, h int) Space {
	return Space{Name: "reference", Width: float64(w), Height: float64(h), Axis: YDown}
}

// LevelSpace returns the space of pyramid level n with the given pixel size.
// It shares the reference image's axis convention.
func LevelSpace(level, w, h int) Space {
	return Space{Name: fmt.Sprintf("level-%d", level), Width: float64(w), Height: float64(h), Axis: YDown}
}

// VideoSpace returns the space of a w x h live-video frame whose points use
// the given axis convention.
func VideoSpace(w, h int, axis Axis) Space {
	return Space{Name: "video", Width: float64(w), Height: float64(h), Axis: axis}
}

// FlipsY reports whether drawing this space on screen needs a vertical flip.
func (s Space) FlipsY() bool {
	return s.Axis != ScreenAxis
}

// Viewport is a screen rectangle. X, Y is its bottom-left corner in screen
// space (origin bottom-left, Y up).
type Viewport struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the viewport has zero or negative area.
func (v Viewport) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}

// FitZoom returns the largest uniform scale at which a source extent fits in a
// destination extent without cropping.
//
// zoom*src can land one rounding step past dst (7 into 29 gives
// 29.000000000000004). Use FitExtent when the scaled size itself is needed.
func FitZoom(srcW, srcH, dstW, dstH float64) (float64, error) {
	if srcW <= 0 || srcH <= 0 {
		return 0, fmt.Errorf("%w: source extent %gx%g", ErrInvalidConfiguration, srcW, srcH)
	}
	if dstW <= 0 || dstH <= 0 {
		return 0, fmt.Errorf("%w: destination extent %gx%g has zero area", ErrInvalidConfiguration, dstW, dstH)
	}
	xzoom := dstW / srcW
	yzoom := dstH / srcH
	if xzoom > yzoom {
		return yzoom, nil
	}
	return xzoom, nil
}

// FitExtent returns the fit zoom together with the scaled source size. The
// limiting axis is exactly the destination size and the other axis never
// exceeds it.
func FitExtent(srcW, srcH, dstW, dstH float64) (zoom, w, h float64, err error) {
	zoom, err = FitZoom(srcW, srcH, dstW, dstH)
	if err != nil {
		return 0, 0, 0, err
	}
	if dstW/srcW <= dstH/srcH {
		return zoom, dstW, math.Min(dstH, srcH*zoom), nil
	}
	return zoom, math.Min(dstW, srcW*zoom), dstH, nil
}
