package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/trackviz/internal/geometry"
)

// Pyramid is an ordered set of progressively downsampled copies of an image.
// Levels[0] is the source; Levels[k] is half the width and height (floor) of
// Levels[k-1]. A Pyramid is built once and never modified.
type Pyramid struct {
	Levels []*image.Gray
}

// BuildPyramid produces maxLevel+1 resolution levels from src.
//
// Each level after the first is a 2x box-filter (area) reduction of its
// predecessor, so every output pixel is the mean of the 2x2 block it covers
// when the dimensions are even.
//
// Returns an error wrapping geometry.ErrInvalidConfiguration when maxLevel is
// negative or when src is smaller than 2^maxLevel in either dimension, since
// the deepest level would otherwise have zero width or height.
func BuildPyramid(src *image.Gray, maxLevel int) (*Pyramid, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source image", geometry.ErrInvalidConfiguration)
	}
	if maxLevel < 0 {
		return nil, fmt.Errorf("%w: max pyramid level %d is negative", geometry.ErrInvalidConfiguration, maxLevel)
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if maxLevel >= 31 || w>>maxLevel < 1 || h>>maxLevel < 1 {
		return nil, fmt.Errorf("%w: %dx%d image is too small for %d pyramid levels",
			geometry.ErrInvalidConfiguration, w, h, maxLevel+1)
	}

	levels := make([]*image.Gray, 0, maxLevel+1)
	levels = append(levels, ToGray(src))
	for i := 1; i <= maxLevel; i++ {
		levels = append(levels, Downsample(levels[i-1]))
	}
	return &Pyramid{Levels: levels}, nil
}

// Downsample halves both dimensions of img (integer floor) by box filtering.
// The caller must ensure both dimensions are at least 2.
func Downsample(img *image.Gray) *image.Gray {
	b := img.Bounds()
	resized := imaging.Resize(img, b.Dx()/2, b.Dy()/2, imaging.Box)
	return grayFromNRGBA(resized)
}

// MaxLevel returns the index of the smallest level.
func (p *Pyramid) MaxLevel() int {
	return len(p.Levels) - 1
}

// Level returns level i, clamped to the valid range.
func (p *Pyramid) Level(i int) *image.Gray {
	return p.Levels[Clamp(i, 0, p.MaxLevel())]
}

// Sizes returns the pixel dimensions of every level in order.
func (p *Pyramid) Sizes() []geometry.Size {
	sizes := make([]geometry.Size, len(p.Levels))
	for i, l := range p.Levels {
		sizes[i] = geometry.Size{Width: l.Bounds().Dx(), Height: l.Bounds().Dy()}
	}
	return sizes
}
