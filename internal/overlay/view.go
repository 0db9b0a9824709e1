package overlay

import (
	"fmt"
	"strings"

	"github.com/ironsheep/trackviz/internal/geometry"
)

// Mask selects which correspondence categories are drawn.
type Mask uint8

const (
	MaskFeatures    Mask = 1 << iota // descriptor matches
	MaskOpticalFlow                  // optical-flow tracks
	MaskTemplates                    // template matches

	MaskNone Mask = 0
	MaskAll       = MaskFeatures | MaskOpticalFlow | MaskTemplates
)

// Has reports whether every category in c is enabled.
func (m Mask) Has(c Mask) bool {
	return m&c == c
}

// Next returns the following mask in 0..MaskAll, wrapping to MaskNone.
func (m Mask) Next() Mask {
	return (m + 1) & MaskAll
}

func (m Mask) String() string {
	if m&MaskAll == MaskNone {
		return "none"
	}
	var parts []string
	if m.Has(MaskFeatures) {
		parts = append(parts, "features")
	}
	if m.Has(MaskOpticalFlow) {
		parts = append(parts, "optical-flow")
	}
	if m.Has(MaskTemplates) {
		parts = append(parts, "templates")
	}
	return strings.Join(parts, "+")
}

// Status is whether the layout matches the current window and video size.
type Status int

const (
	Stale Status = iota
	Current
)

func (s Status) String() string {
	if s == Current {
		return "current"
	}
	return "stale"
}

// Pane is one source space placed in a screen viewport.
type Pane struct {
	Space    geometry.Space
	Viewport geometry.Viewport
	Zoom     float64
	mapping  *geometry.Mapping
}

// Map converts a point of the pane's space into screen coordinates.
func (p *Pane) Map(pt geometry.Point) geometry.Point {
	return p.mapping.Map(pt)
}

// fromLevel returns the mapping from pyramid-level coordinates to the screen,
// for a pane showing the reference image.
func (p *Pane) fromLevel(level int) *geometry.Mapping {
	return geometry.LevelToReference(level).Then(p.mapping)
}

// Layout is the screen placement computed for one window size.
type Layout struct {
	Window    geometry.Size
	Reference *Pane
	// Video is nil until the video frame size is known.
	Video *Pane
}

// ViewState is the mutable display state shared by the session loop and the
// renderer. It is owned by a single goroutine.
type ViewState struct {
	window    geometry.Size
	reference geometry.Size
	video     geometry.Size
	videoAxis geometry.Axis

	status Status
	layout *Layout

	// ActiveLevel is the pyramid level whose templates are drawn.
	ActiveLevel int
	Mask        Mask

	ShowTemplates bool
	ShowFeatures  bool
	ShowBins      bool
	ShowHelp      bool
	ShowMode      bool
}

// NewViewState creates a stale view for a reference of the given size.
// Every correspondence category and every overlay starts enabled, help and
// mode text included.
func NewViewState(reference, window geometry.Size) *ViewState {
	return &ViewState{
		window:        window,
		reference:     reference,
		videoAxis:     geometry.YDown,
		status:        Stale,
		Mask:          MaskAll,
		ShowTemplates: true,
		ShowFeatures:  true,
		ShowBins:      true,
		ShowHelp:      true,
		ShowMode:      true,
	}
}

// Status reports whether Layout will recompute.
func (v *ViewState) Status() Status {
	return v.status
}

// Window returns the current window size.
func (v *ViewState) Window() geometry.Size {
	return v.window
}

// Resize records a new window size and marks the layout stale.
func (v *ViewState) Resize(width, height int) {
	v.window = geometry.Size{Width: width, Height: height}
	v.status = Stale
}

// SetVideo records the live-video frame size and axis. The layout is only
// marked stale when either changes.
func (v *ViewState) SetVideo(width, height int, axis geometry.Axis) {
	size := geometry.Size{Width: width, Height: height}
	if size == v.video && axis == v.videoAxis {
		return
	}
	v.video = size
	v.videoAxis = axis
	v.status = Stale
}

// Layout returns the placement for the current window, recomputing it first
// if anything changed since the last call.
//
// The window is split in halves: the video is fitted into the left half and
// the reference into the right half, both aligned to the top edge.
func (v *ViewState) Layout() (*Layout, error) {
	if v.status == Current && v.layout != nil {
		return v.layout, nil
	}
	if v.window.Empty() {
		return nil, fmt.Errorf("%w: window %s has zero area", geometry.ErrInvalidConfiguration, v.window)
	}

	half := float64(v.window.Width) / 2
	winH := float64(v.window.Height)

	ref, err := fitPane(geometry.ReferenceSpace(v.reference.Width, v.reference.Height), half, half, winH, winH)
	if err != nil {
		return nil, fmt.Errorf("failed to place reference: %w", err)
	}

	layout := &Layout{Window: v.window, Reference: ref}
	if !v.video.Empty() {
		video, err := fitPane(geometry.VideoSpace(v.video.Width, v.video.Height, v.videoAxis), 0, half, winH, winH)
		if err != nil {
			return nil, fmt.Errorf("failed to place video: %w", err)
		}
		layout.Video = video
	}

	v.layout = layout
	v.status = Current
	return layout, nil
}

// fitPane fits src into a dstW x dstH region whose left edge is at x and
// whose top edge is at top, in screen coordinates.
func fitPane(src geometry.Space, x, dstW, dstH, top float64) (*Pane, error) {
	zoom, w, h, err := geometry.FitExtent(src.Width, src.Height, dstW, dstH)
	if err != nil {
		return nil, err
	}
	vp := geometry.Viewport{X: x, Y: top - h, Width: w, Height: h}
	m, err := geometry.NewMapping(src, vp, zoom)
	if err != nil {
		return nil, err
	}
	return &Pane{Space: src, Viewport: vp, Zoom: zoom, mapping: m}, nil
}
