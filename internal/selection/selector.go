package selection

import (
	"fmt"
	"math"

	"github.com/ironsheep/trackviz/internal/detection"
	"github.com/ironsheep/trackviz/internal/geometry"
)

// Config controls template point selection.
type Config struct {
	// TemplateWidth is the side of the square patch centred on each point,
	// in pixels of the level being selected.
	TemplateWidth int

	// BinCount is the number of grid divisions per axis before bins are
	// widened to at least one template width.
	BinCount int
}

// DefaultConfig returns a 15 pixel template and a 10x10 bin grid.
func DefaultConfig() Config {
	return Config{TemplateWidth: 15, BinCount: 10}
}

// Validate reports configuration values that cannot produce a selection.
func (c Config) Validate() error {
	if c.TemplateWidth <= 0 {
		return fmt.Errorf("%w: template width %d must be positive", geometry.ErrInvalidConfiguration, c.TemplateWidth)
	}
	if c.BinCount <= 0 {
		return fmt.Errorf("%w: bin count %d must be positive", geometry.ErrInvalidConfiguration, c.BinCount)
	}
	return nil
}

// HalfWidth returns the distance from a template's centre to its edge.
func (c Config) HalfWidth() float64 {
	return float64(c.TemplateWidth) / 2
}

// Grid is the bin layout for one image extent.
type Grid struct {
	Cols, Rows int
	CellWidth  float64
	CellHeight float64
}

// NewGrid lays out bins over a width x height extent. Cells are
// extent/BinCount wide, but never narrower than one template width, so two
// selected templates in horizontally or vertically adjacent bins cannot share
// a cell.
func NewGrid(width, height int, cfg Config) Grid {
	cw := math.Max(float64(width)/float64(cfg.BinCount), float64(cfg.TemplateWidth))
	ch := math.Max(float64(height)/float64(cfg.BinCount), float64(cfg.TemplateWidth))
	return Grid{
		Cols:       int(math.Ceil(float64(width) / cw)),
		Rows:       int(math.Ceil(float64(height) / ch)),
		CellWidth:  cw,
		CellHeight: ch,
	}
}

// Cell returns the row-major bin index containing p.
func (g Grid) Cell(p geometry.Point) int {
	col := clampIndex(int(p.X/g.CellWidth), g.Cols)
	row := clampIndex(int(p.Y/g.CellHeight), g.Rows)
	return row*g.Cols + col
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Fits reports whether a template centred on p lies inside a width x height
// image, i.e. p is at least one half-width from every edge.
func (c Config) Fits(p geometry.Point, width, height int) bool {
	half := c.HalfWidth()
	return p.X-half >= 0 && p.Y-half >= 0 &&
		p.X+half <= float64(width) && p.Y+half <= float64(height)
}

// Select picks at most one corner per bin, the highest scoring one (first
// encountered on ties), from corners that leave room for a full template.
//
// The result is ordered by bin in row-major order and is empty, not nil,
// when nothing survives.
func Select(corners []detection.Corner, width, height int, cfg Config) ([]geometry.Point, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: level extent %dx%d has zero area", geometry.ErrInvalidConfiguration, width, height)
	}

	grid := NewGrid(width, height, cfg)
	best := make([]int, grid.Cols*grid.Rows)
	for i := range best {
		best[i] = -1
	}

	for i, c := range corners {
		if !cfg.Fits(c.Point, width, height) {
			continue
		}
		cell := grid.Cell(c.Point)
		if best[cell] < 0 || c.Score > corners[best[cell]].Score {
			best[cell] = i
		}
	}

	points := make([]geometry.Point, 0)
	for _, idx := range best {
		if idx >= 0 {
			points = append(points, corners[idx].Point)
		}
	}
	return points, nil
}
