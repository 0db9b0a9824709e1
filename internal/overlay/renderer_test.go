package overlay

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/trackviz/internal/detection"
	"github.com/ironsheep/trackviz/internal/geometry"
	"github.com/ironsheep/trackviz/internal/imaging"
	"github.com/ironsheep/trackviz/internal/pipeline"
)

type lineCmd struct {
	a, b  geometry.Point
	width float64
	c     color.Color
}

// recordingCanvas captures drawing commands instead of rasterising them.
type recordingCanvas struct {
	size   geometry.Size
	lines  []lineCmd
	images []geometry.Viewport
	fills  []geometry.Viewport
	texts  []string
}

func (rc *recordingCanvas) Size() geometry.Size { return rc.size }

func (rc *recordingCanvas) Image(img image.Image, vp geometry.Viewport) {
	rc.images = append(rc.images, vp)
}

func (rc *recordingCanvas) Fill(vp geometry.Viewport, c color.Color) {
	rc.fills = append(rc.fills, vp)
}

func (rc *recordingCanvas) Line(a, b geometry.Point, width float64, c color.Color) {
	rc.lines = append(rc.lines, lineCmd{a: a, b: b, width: width, c: c})
}

func (rc *recordingCanvas) Text(origin geometry.Point, s string, c color.Color) {
	rc.texts = append(rc.texts, s)
}

func (rc *recordingCanvas) linesOf(c color.Color) []lineCmd {
	var out []lineCmd
	r0, g0, b0, a0 := c.RGBA()
	for _, l := range rc.lines {
		r, g, b, a := l.c.RGBA()
		if r == r0 && g == g0 && b == b0 && a == a0 {
			out = append(out, l)
		}
	}
	return out
}

// createTestModel builds a model for an 800x600 reference with hand-placed
// templates and features.
func createTestModel(t *testing.T) *pipeline.Model {
	t.Helper()
	ref, err := imaging.NewReference(image.NewGray(image.Rect(0, 0, 800, 600)))
	if err != nil {
		t.Fatalf("NewReference failed: %v", err)
	}
	cfg := pipeline.DefaultConfig()
	pyr, err := imaging.BuildPyramid(ref.Gray, cfg.MaxLevel)
	if err != nil {
		t.Fatalf("BuildPyramid failed: %v", err)
	}
	return &pipeline.Model{
		Reference: ref,
		Pyramid:   pyr,
		Templates: [][]geometry.Point{
			{{X: 100, Y: 100}, {X: 300, Y: 200}},
			{{X: 10, Y: 20}},
			{},
		},
		Features: []detection.Keypoint{
			{Point: geometry.Pt(100, 50)},
		},
		Config: cfg,
	}
}

// newTestView returns a view with every toggle off, over an 800x600 window.
func newTestView() *ViewState {
	v := NewViewState(geometry.Size{Width: 800, Height: 600}, geometry.Size{Width: 800, Height: 600})
	v.ShowTemplates = false
	v.ShowFeatures = false
	v.ShowBins = false
	v.ShowHelp = false
	v.ShowMode = false
	return v
}

func TestRender_TemplateBoxes(t *testing.T) {
	r := NewRenderer(createTestModel(t), DefaultPalette(), nil)
	v := newTestView()
	v.ShowTemplates = true
	v.ActiveLevel = 1

	c := &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
	stats, err := r.Render(c, v, Frame{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if stats.Level != 1 || stats.Boxes != 1 {
		t.Errorf("stats: got %+v, want level 1 with 1 box", stats)
	}
	if len(c.lines) != 4 {
		t.Fatalf("expected 4 box edges, got %d", len(c.lines))
	}

	// Level-1 point (10,20) is reference (20,40); radius (15<<1)/2 = 15.
	// Reference pane: zoom 0.5 at (400,300), flipped.
	want := []geometry.Point{
		{X: 400 + 5*0.5, Y: 300 + (600-25)*0.5},
		{X: 400 + 5*0.5, Y: 300 + (600-55)*0.5},
		{X: 400 + 35*0.5, Y: 300 + (600-55)*0.5},
		{X: 400 + 35*0.5, Y: 300 + (600-25)*0.5},
	}
	for i, l := range c.lines {
		if !near(l.a, want[i]) || !near(l.b, want[(i+1)%4]) {
			t.Errorf("edge %d: got %v-%v, want %v-%v", i, l.a, l.b, want[i], want[(i+1)%4])
		}
		if l.width != boxLineWidth {
			t.Errorf("edge %d width: got %v", i, l.width)
		}
	}
}

func TestRender_LevelClamped(t *testing.T) {
	r := NewRenderer(createTestModel(t), DefaultPalette(), nil)
	v := newTestView()
	v.ShowTemplates = true
	v.ActiveLevel = 7

	stats, err := r.Render(&recordingCanvas{}, v, Frame{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if stats.Level != 2 || stats.Boxes != 0 {
		t.Errorf("stats: got %+v, want level 2 with no boxes", stats)
	}
}

func TestRender_BinsAndFeatures(t *testing.T) {
	p := DefaultPalette()
	r := NewRenderer(createTestModel(t), p, nil)
	v := newTestView()
	v.ShowBins = true
	v.ShowFeatures = true

	c := &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
	stats, err := r.Render(c, v, Frame{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if bins := c.linesOf(p.BinLine); len(bins) != 2*11 {
		t.Errorf("bin lines: got %d, want 22", len(bins))
	}

	cross := c.linesOf(p.FeatureCross)
	if stats.Crosses != 1 || len(cross) != 2 {
		t.Fatalf("feature cross: got %d crosses drawn with %d lines", stats.Crosses, len(cross))
	}
	// Reference (100,50) maps to (450,575); the cross spans 5 reference pixels.
	if !near(cross[0].a, geometry.Pt(447.5, 577.5)) || !near(cross[0].b, geometry.Pt(452.5, 572.5)) {
		t.Errorf("cross diagonal: got %v-%v", cross[0].a, cross[0].b)
	}
}

func TestRender_BinsFollowSelectionGrid(t *testing.T) {
	tests := []struct {
		name          string
		templateWidth int
		level         int
		bins          int
		xs            []float64 // screen x of the vertical lines
		ys            []float64 // screen y of the horizontal lines
	}{
		{
			// Cells widen from 80x60 to 200x200: a 4x3 grid.
			name: "cells widened to the template", templateWidth: 200, level: 0, bins: 12,
			xs: []float64{400, 500, 600, 700, 800},
			ys: []float64{600, 500, 400, 300},
		},
		{
			// 600/70 is not whole: the last row stops at the image edge.
			name: "partial last row", templateWidth: 70, level: 0, bins: 90,
			xs: []float64{400, 440, 480, 520, 560, 600, 640, 680, 720, 760, 800},
			ys: []float64{600, 565, 530, 495, 460, 425, 390, 355, 320, 300},
		},
		{
			// Level 1 is 400x300 with 40x30 cells, 80x60 in reference pixels.
			name: "coarser level", templateWidth: 15, level: 1, bins: 100,
			xs: []float64{400, 440, 480, 520, 560, 600, 640, 680, 720, 760, 800},
			ys: []float64{600, 570, 540, 510, 480, 450, 420, 390, 360, 330, 300},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPalette()
			m := createTestModel(t)
			m.Config.Selection.TemplateWidth = tt.templateWidth
			r := NewRenderer(m, p, nil)
			v := newTestView()
			v.ShowBins = true
			v.ActiveLevel = tt.level

			c := &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
			stats, err := r.Render(c, v, Frame{})
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if stats.Bins != tt.bins {
				t.Errorf("bins: got %d, want %d", stats.Bins, tt.bins)
			}

			lines := c.linesOf(p.BinLine)
			if len(lines) != len(tt.xs)+len(tt.ys) {
				t.Fatalf("bin lines: got %d, want %d", len(lines), len(tt.xs)+len(tt.ys))
			}
			for i, x := range tt.xs {
				l := lines[i]
				if !near(l.a, geometry.Pt(x, 600)) || !near(l.b, geometry.Pt(x, 300)) {
					t.Errorf("vertical %d: got %v-%v, want x=%v", i, l.a, l.b, x)
				}
			}
			for i, y := range tt.ys {
				l := lines[len(tt.xs)+i]
				if !near(l.a, geometry.Pt(400, y)) || !near(l.b, geometry.Pt(800, y)) {
					t.Errorf("horizontal %d: got %v-%v, want y=%v", i, l.a, l.b, y)
				}
			}
		})
	}
}

func TestRender_Correspondences(t *testing.T) {
	p := DefaultPalette()
	r := NewRenderer(createTestModel(t), p, nil)
	v := newTestView()
	v.SetVideo(400, 300, geometry.YDown)

	f := Frame{
		OpticalFlow: Correspondences{
			Reference: []geometry.Point{{X: 100, Y: 50}, {X: 0, Y: 0}, {X: 5, Y: 5}},
			Video:     []geometry.Point{{X: 200, Y: 100}, {X: 0, Y: 0}},
		},
		Templates: Correspondences{
			Reference: []geometry.Point{{X: 1, Y: 1}},
		},
		Features: Correspondences{
			Video: []geometry.Point{{X: 1, Y: 1}},
		},
	}

	c := &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
	stats, err := r.Render(c, v, f)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if stats.Segments != 2 {
		t.Fatalf("segments: got %d, want 2 (truncated to the shorter list)", stats.Segments)
	}

	flow := c.linesOf(p.OpticalFlow)
	if len(flow) != 2 {
		t.Fatalf("optical flow lines: got %d, want 2", len(flow))
	}
	// Video 400x300 fits the 400x600 left half at zoom 1, top-aligned at y=300.
	if !near(flow[0].a, geometry.Pt(450, 575)) || !near(flow[0].b, geometry.Pt(200, 500)) {
		t.Errorf("first segment: got %v-%v, want (450,575)-(200,500)", flow[0].a, flow[0].b)
	}
	if len(c.linesOf(p.TemplateMatch)) != 0 || len(c.linesOf(p.FeatureMatch)) != 0 {
		t.Error("one-sided correspondence lists must draw nothing")
	}
}

func TestRender_MaskFiltersCategories(t *testing.T) {
	p := DefaultPalette()
	r := NewRenderer(createTestModel(t), p, nil)
	pair := Correspondences{
		Reference: []geometry.Point{{X: 10, Y: 10}},
		Video:     []geometry.Point{{X: 20, Y: 20}},
	}
	f := Frame{OpticalFlow: pair, Templates: pair, Features: pair}

	tests := []struct {
		mask     Mask
		segments int
	}{
		{MaskNone, 0},
		{MaskFeatures, 1},
		{MaskOpticalFlow | MaskTemplates, 2},
		{MaskAll, 3},
	}
	for _, tt := range tests {
		t.Run(tt.mask.String(), func(t *testing.T) {
			v := newTestView()
			v.SetVideo(640, 480, geometry.YDown)
			v.Mask = tt.mask

			c := &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
			stats, err := r.Render(c, v, f)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if stats.Segments != tt.segments {
				t.Errorf("segments: got %d, want %d", stats.Segments, tt.segments)
			}
			if got := len(c.linesOf(p.FeatureMatch)) == 1; got != tt.mask.Has(MaskFeatures) {
				t.Errorf("feature matches drawn = %v with mask %v", got, tt.mask)
			}
		})
	}
}

func TestRender_NoVideoNoCorrespondences(t *testing.T) {
	r := NewRenderer(createTestModel(t), DefaultPalette(), nil)
	v := newTestView()
	pair := Correspondences{
		Reference: []geometry.Point{{X: 10, Y: 10}},
		Video:     []geometry.Point{{X: 20, Y: 20}},
	}

	c := &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
	stats, err := r.Render(c, v, Frame{OpticalFlow: pair, Bounds: [4]geometry.Point{{X: 1, Y: 1}}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if stats.Segments != 0 || len(c.lines) != 0 {
		t.Errorf("expected nothing drawn without a video pane, got %d lines", len(c.lines))
	}
	if len(c.images) != 1 {
		t.Errorf("expected only the reference image, got %d images", len(c.images))
	}
}

func TestRender_Bounds(t *testing.T) {
	p := DefaultPalette()
	r := NewRenderer(createTestModel(t), p, nil)
	v := newTestView()
	v.SetVideo(400, 300, geometry.YDown)

	c := &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
	if _, err := r.Render(c, v, Frame{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if n := len(c.linesOf(p.Bounds)); n != 0 {
		t.Errorf("untracked bounds: got %d lines, want 0", n)
	}

	c = &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
	f := Frame{Bounds: [4]geometry.Point{{X: 10, Y: 10}, {X: 100, Y: 10}, {X: 100, Y: 80}, {X: 10, Y: 80}}}
	if _, err := r.Render(c, v, f); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	quad := c.linesOf(p.Bounds)
	if len(quad) != 4 {
		t.Fatalf("tracked bounds: got %d lines, want 4", len(quad))
	}
	if !near(quad[3].b, quad[0].a) {
		t.Error("bounds quad should be closed")
	}
}

func TestRender_RecomputesStaleLayout(t *testing.T) {
	p := DefaultPalette()
	r := NewRenderer(createTestModel(t), p, nil)
	v := newTestView()
	v.ShowFeatures = true

	c := &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
	if _, err := r.Render(c, v, Frame{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	v.Resize(1600, 1200)
	c = &recordingCanvas{size: geometry.Size{Width: 1600, Height: 1200}}
	if _, err := r.Render(c, v, Frame{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// Zoom 1 in the right half: reference (100,50) is screen (900,1150).
	cross := c.linesOf(p.FeatureCross)
	if len(cross) != 2 || !near(cross[0].a, geometry.Pt(895, 1155)) {
		t.Errorf("cross after resize: got %v", cross)
	}
}

func TestRender_ZeroAreaWindow(t *testing.T) {
	r := NewRenderer(createTestModel(t), DefaultPalette(), nil)
	v := newTestView()
	v.Resize(0, 0)

	c := &recordingCanvas{}
	if _, err := r.Render(c, v, Frame{}); !errors.Is(err, geometry.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
	if len(c.images)+len(c.lines) != 0 {
		t.Error("nothing should be drawn when layout fails")
	}
}

func TestRender_HelpAndMode(t *testing.T) {
	r := NewRenderer(createTestModel(t), DefaultPalette(), nil)
	v := newTestView()
	v.ShowHelp = true
	v.ShowMode = true

	c := &recordingCanvas{size: geometry.Size{Width: 800, Height: 600}}
	if _, err := r.Render(c, v, Frame{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(c.fills) != 2 {
		t.Fatalf("expected 2 text backgrounds, got %d", len(c.fills))
	}
	if len(c.texts) != 3+len(helpLines) {
		t.Errorf("text lines: got %d, want %d", len(c.texts), 3+len(helpLines))
	}
	if c.texts[0] != "Reference image size = (800,600)" || c.texts[1] != "Drawing into 800x600 window" {
		t.Errorf("mode text: got %q", c.texts[:2])
	}

	mode, help := c.fills[0], c.fills[1]
	if mode.Y+mode.Height != 600-textMargin {
		t.Errorf("mode block should touch the top margin, got %+v", mode)
	}
	if help.Y != textMargin {
		t.Errorf("help block should sit on the bottom margin, got %+v", help)
	}
}
