package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/ironsheep/trackviz/internal/geometry"
	"github.com/ironsheep/trackviz/internal/pipeline"
	"github.com/ironsheep/trackviz/internal/selection"
)

const (
	// featureCrossHalf is the half-extent of a feature marker in reference pixels.
	featureCrossHalf = 5

	boxLineWidth   = 2
	thinLineWidth  = 1
	textMargin     = 2
	textLineHeight = 13
)

// textFace supplies metrics for laying out help and mode text.
var textFace font.Face = basicfont.Face7x13

// helpLines is the key reference shown by the help overlay.
var helpLines = []string{
	"Keys:",
	" ? or /        Show/hide this help.",
	" m             Show/hide mode information.",
	" q or [esc]    Quit program.",
	" [space]       Page through all combinations of correspondence modes.",
	" - or +        Lower or raise the RANSAC threshold.",
}

// Correspondences pairs reference points with live-video points by index.
type Correspondences struct {
	Reference []geometry.Point `json:"reference"`
	Video     []geometry.Point `json:"video"`
}

// Len returns the number of usable pairs: the shorter of the two lists.
func (c Correspondences) Len() int {
	if len(c.Reference) < len(c.Video) {
		return len(c.Reference)
	}
	return len(c.Video)
}

// Frame is the per-frame tracker output consumed by the renderer.
type Frame struct {
	// Video is the live frame image, drawn when the video size is known.
	Video image.Image

	// Bounds are the tracked marker corners in video space. All zero means
	// nothing is tracked.
	Bounds [4]geometry.Point

	OpticalFlow Correspondences
	Templates   Correspondences
	Features    Correspondences
}

// Stats summarises what a Render call drew.
type Stats struct {
	Level    int
	Boxes    int
	Bins     int
	Crosses  int
	Segments int
}

// Renderer draws the tracking model and per-frame correspondences. It holds
// no per-frame state.
type Renderer struct {
	model   *pipeline.Model
	palette Palette
	logger  *logrus.Logger
}

// NewRenderer creates a renderer for model. The logger may be nil.
func NewRenderer(model *pipeline.Model, palette Palette, logger *logrus.Logger) *Renderer {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}
	return &Renderer{model: model, palette: palette, logger: logger}
}

// Render draws one complete frame onto c.
//
// A stale view is laid out again before anything is drawn. Correspondence
// lists of unequal length are truncated to the shorter one, and lines are
// only drawn once the video size is known.
func (r *Renderer) Render(c Canvas, v *ViewState, f Frame) (Stats, error) {
	layout, err := v.Layout()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to lay out view: %w", err)
	}

	ref := layout.Reference
	stats := Stats{Level: r.model.ClampLevel(v.ActiveLevel)}

	c.Image(r.model.Reference.Gray, ref.Viewport)
	if layout.Video != nil && f.Video != nil {
		c.Image(f.Video, layout.Video.Viewport)
	}

	if v.ShowTemplates {
		stats.Boxes = r.drawTemplates(c, ref, stats.Level)
	}
	if v.ShowBins {
		stats.Bins = r.drawBins(c, ref, stats.Level)
	}
	if v.ShowFeatures {
		stats.Crosses = r.drawFeatures(c, ref)
	}

	if layout.Video != nil {
		video := layout.Video
		if v.Mask.Has(MaskOpticalFlow) {
			stats.Segments += r.drawCorrespondences(c, ref, video, f.OpticalFlow, r.palette.OpticalFlow)
		}
		if v.Mask.Has(MaskTemplates) {
			stats.Segments += r.drawCorrespondences(c, ref, video, f.Templates, r.palette.TemplateMatch)
		}
		if v.Mask.Has(MaskFeatures) {
			stats.Segments += r.drawCorrespondences(c, ref, video, f.Features, r.palette.FeatureMatch)
		}
		r.drawBounds(c, video, f.Bounds)
	}

	if v.ShowMode {
		r.drawTextBlock(c, modeLines(r.model, v, layout), false)
	}
	if v.ShowHelp {
		r.drawTextBlock(c, helpLines, true)
	}

	r.logger.WithFields(logrus.Fields{
		"level":    stats.Level,
		"boxes":    stats.Boxes,
		"bins":     stats.Bins,
		"crosses":  stats.Crosses,
		"segments": stats.Segments,
	}).Debug("Rendered frame")

	return stats, nil
}

// drawTemplates outlines the templates of level. Boxes are TemplateWidth
// level pixels wide, i.e. (templateWidth<<level)/2 reference pixels from
// centre to edge.
func (r *Renderer) drawTemplates(c Canvas, ref *Pane, level int) int {
	toScreen := ref.fromLevel(level)
	half := r.model.Config.Selection.HalfWidth()
	points := r.model.Templates[level]
	for _, p := range points {
		corners := [4]geometry.Point{
			toScreen.Map(geometry.Pt(p.X-half, p.Y-half)),
			toScreen.Map(geometry.Pt(p.X-half, p.Y+half)),
			toScreen.Map(geometry.Pt(p.X+half, p.Y+half)),
			toScreen.Map(geometry.Pt(p.X+half, p.Y-half)),
		}
		drawLoop(c, corners, boxLineWidth, r.palette.TemplateBox)
	}
	return len(points)
}

// drawBins draws the boundaries of the selection bins of level. The last
// row and column are cut off at the image edge when the extent is not a
// whole number of cells.
func (r *Renderer) drawBins(c Canvas, ref *Pane, level int) int {
	space := r.model.LevelSpace(level)
	grid := selection.NewGrid(int(space.Width), int(space.Height), r.model.Config.Selection)
	toScreen := ref.fromLevel(level)

	line := func(a, b geometry.Point) {
		c.Line(toScreen.Map(a), toScreen.Map(b), thinLineWidth, r.palette.BinLine)
	}
	for i := 0; i <= grid.Cols; i++ {
		x := math.Min(float64(i)*grid.CellWidth, space.Width)
		line(geometry.Pt(x, 0), geometry.Pt(x, space.Height))
	}
	for i := 0; i <= grid.Rows; i++ {
		y := math.Min(float64(i)*grid.CellHeight, space.Height)
		line(geometry.Pt(0, y), geometry.Pt(space.Width, y))
	}
	return grid.Cols * grid.Rows
}

func (r *Renderer) drawFeatures(c Canvas, ref *Pane) int {
	const d = featureCrossHalf
	for _, kp := range r.model.Features {
		p := kp.Point
		c.Line(ref.Map(geometry.Pt(p.X-d, p.Y-d)), ref.Map(geometry.Pt(p.X+d, p.Y+d)), boxLineWidth, r.palette.FeatureCross)
		c.Line(ref.Map(geometry.Pt(p.X+d, p.Y-d)), ref.Map(geometry.Pt(p.X-d, p.Y+d)), boxLineWidth, r.palette.FeatureCross)
	}
	return len(r.model.Features)
}

func (r *Renderer) drawCorrespondences(c Canvas, ref, video *Pane, pairs Correspondences, col color.Color) int {
	n := pairs.Len()
	for i := 0; i < n; i++ {
		c.Line(ref.Map(pairs.Reference[i]), video.Map(pairs.Video[i]), thinLineWidth, col)
	}
	return n
}

func (r *Renderer) drawBounds(c Canvas, video *Pane, bounds [4]geometry.Point) {
	tracked := false
	for _, p := range bounds {
		if !p.IsZero() {
			tracked = true
			break
		}
	}
	if !tracked {
		return
	}
	var corners [4]geometry.Point
	for i, p := range bounds {
		corners[i] = video.Map(p)
	}
	drawLoop(c, corners, boxLineWidth, r.palette.Bounds)
}

// drawTextBlock draws lines on a translucent background, anchored to the
// bottom-left corner of the window when atBottom is set and to the top-left
// corner otherwise.
func (r *Renderer) drawTextBlock(c Canvas, lines []string, atBottom bool) {
	if len(lines) == 0 {
		return
	}
	var width float64
	for _, s := range lines {
		if w := float64(font.MeasureString(textFace, s).Ceil()); w > width {
			width = w
		}
	}
	height := float64(len(lines) * textLineHeight)

	bottom := float64(textMargin)
	if !atBottom {
		bottom = float64(c.Size().Height) - textMargin - height
	}
	c.Fill(geometry.Viewport{X: textMargin, Y: bottom, Width: width, Height: height},
		translucent(r.palette.TextBackground, r.palette.TextAlpha))

	ascent := float64(textFace.Metrics().Ascent.Ceil())
	top := bottom + height
	for i, s := range lines {
		baseline := top - float64(i*textLineHeight) - ascent
		c.Text(geometry.Pt(textMargin, baseline), s, r.palette.Text)
	}
}

func modeLines(m *pipeline.Model, v *ViewState, layout *Layout) []string {
	size := m.Reference.Size()
	return []string{
		fmt.Sprintf("Reference image size = (%d,%d)", size.Width, size.Height),
		fmt.Sprintf("Drawing into %s window", layout.Window),
		fmt.Sprintf("Template level %d, correspondences: %s", m.ClampLevel(v.ActiveLevel), v.Mask),
	}
}

func drawLoop(c Canvas, corners [4]geometry.Point, width float64, col color.Color) {
	for i := range corners {
		c.Line(corners[i], corners[(i+1)%4], width, col)
	}
}
