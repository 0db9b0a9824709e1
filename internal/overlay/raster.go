package overlay

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ironsheep/trackviz/internal/geometry"
)

// RasterCanvas draws into an in-memory RGBA image. Screen Y (up) is
// converted to image rows (down) at the edge of every call.
type RasterCanvas struct {
	img  *image.RGBA
	face font.Face
	z    *vector.Rasterizer
}

// NewRasterCanvas creates an opaque black canvas of the given size.
func NewRasterCanvas(width, height int) *RasterCanvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return &RasterCanvas{
		img:  img,
		face: basicfont.Face7x13,
		z:    vector.NewRasterizer(width, height),
	}
}

// RGBA returns the backing image.
func (rc *RasterCanvas) RGBA() *image.RGBA {
	return rc.img
}

func (rc *RasterCanvas) Size() geometry.Size {
	b := rc.img.Bounds()
	return geometry.Size{Width: b.Dx(), Height: b.Dy()}
}

// rect converts a screen viewport into image pixel bounds.
func (rc *RasterCanvas) rect(vp geometry.Viewport) image.Rectangle {
	h := float64(rc.img.Bounds().Dy())
	return image.Rect(
		int(math.Round(vp.X)),
		int(math.Round(h-(vp.Y+vp.Height))),
		int(math.Round(vp.X+vp.Width)),
		int(math.Round(h-vp.Y)),
	)
}

func (rc *RasterCanvas) Image(img image.Image, vp geometry.Viewport) {
	if img == nil || vp.Empty() {
		return
	}
	draw.ApproxBiLinear.Scale(rc.img, rc.rect(vp), img, img.Bounds(), draw.Over, nil)
}

func (rc *RasterCanvas) Fill(vp geometry.Viewport, c color.Color) {
	if vp.Empty() {
		return
	}
	draw.Draw(rc.img, rc.rect(vp), image.NewUniform(c), image.Point{}, draw.Over)
}

func (rc *RasterCanvas) Line(a, b geometry.Point, width float64, c color.Color) {
	bounds := rc.img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	// Image rows grow downward.
	ax, ay := a.X, h-a.Y
	bx, by := b.X, h-b.Y
	ax, ay, bx, by, ok := clipSegment(ax, ay, bx, by, w, h)
	if !ok {
		return
	}

	dx, dy := bx-ax, by-ay
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	if width <= 0 {
		width = 1
	}
	nx := -dy / length * width / 2
	ny := dx / length * width / 2

	pt := func(x, y float64) (float32, float32) {
		return float32(clampFloat(x, 0, w)), float32(clampFloat(y, 0, h))
	}

	rc.z.Reset(bounds.Dx(), bounds.Dy())
	rc.z.MoveTo(pt(ax+nx, ay+ny))
	rc.z.LineTo(pt(bx+nx, by+ny))
	rc.z.LineTo(pt(bx-nx, by-ny))
	rc.z.LineTo(pt(ax-nx, ay-ny))
	rc.z.ClosePath()
	rc.z.Draw(rc.img, bounds, image.NewUniform(c), image.Point{})
}

func (rc *RasterCanvas) Text(origin geometry.Point, s string, c color.Color) {
	h := rc.img.Bounds().Dy()
	d := &font.Drawer{
		Dst:  rc.img,
		Src:  image.NewUniform(c),
		Face: rc.face,
		Dot:  fixed.P(int(math.Round(origin.X)), h-int(math.Round(origin.Y))),
	}
	d.DrawString(s)
}

// clipSegment clips a segment to [0,w]x[0,h] (Liang-Barsky). ok is false
// when nothing of the segment is inside.
func clipSegment(x0, y0, x1, y1, w, h float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	t0, t1 := 0.0, 1.0
	dx, dy := x1-x0, y1-y0
	edges := [4][2]float64{
		{-dx, x0},
		{dx, w - x0},
		{-dy, y0},
		{dy, h - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			if r < t1 {
				t1 = r
			}
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
