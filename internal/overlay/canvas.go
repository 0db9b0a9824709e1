package overlay

import (
	"image"
	"image/color"

	"github.com/ironsheep/trackviz/internal/geometry"
)

// Canvas is the 2D drawing surface the renderer emits commands to. All
// coordinates are screen coordinates: origin at the bottom-left corner of the
// window, Y growing upward.
type Canvas interface {
	// Size returns the window size in pixels.
	Size() geometry.Size

	// Image draws img scaled to fill vp.
	Image(img image.Image, vp geometry.Viewport)

	// Fill blends c over the rectangle vp.
	Fill(vp geometry.Viewport, c color.Color)

	// Line draws a segment of the given width in pixels.
	Line(a, b geometry.Point, width float64, c color.Color)

	// Text draws s with its baseline starting at origin.
	Text(origin geometry.Point, s string, c color.Color)
}
