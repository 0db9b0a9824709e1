package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/ironsheep/trackviz/internal/geometry"
	"github.com/ironsheep/trackviz/internal/overlay"
)

// === Window Events ===

type resizeParams struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleResize(req *Request) *Response {
	var p resizeParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}
	if p.Width <= 0 || p.Height <= 0 {
		return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params",
			fmt.Sprintf("window %dx%d has zero area", p.Width, p.Height))
	}

	s.view.Resize(p.Width, p.Height)
	s.logger.WithField("window", s.view.Window().String()).Debug("Resized")

	return &Response{
		ID: req.ID,
		Result: map[string]interface{}{
			"width":  p.Width,
			"height": p.Height,
		},
	}
}

// === Keyboard ===

type keyParams struct {
	Key string `json:"key"`
}

// KeyState is the display state reported after a key press.
type KeyState struct {
	Mask         string  `json:"mask"`
	MaskBits     int     `json:"mask_bits"`
	ShowHelp     bool    `json:"show_help"`
	ShowMode     bool    `json:"show_mode"`
	RansacThresh float64 `json:"ransac_threshold"`
	Quit         bool    `json:"quit"`
}

func (s *Server) handleKey(req *Request) *Response {
	var p keyParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}
	if p.Key == "" {
		return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", "key is required")
	}

	s.applyKey(p.Key)
	return &Response{ID: req.ID, Result: s.keyState()}
}

// applyKey performs the action bound to key. Unbound keys are ignored.
func (s *Server) applyKey(key string) {
	v := s.view
	switch key {
	case "q", "Q", "esc", "escape", "\x1b":
		s.quit = true
	case "?", "/":
		v.ShowHelp = !v.ShowHelp
	case "m", "M":
		v.ShowMode = !v.ShowMode
	case " ", "space":
		v.Mask = v.Mask.Next()
	case "-":
		s.ransacThresh -= ransacStep
		if s.ransacThresh < 0 {
			s.ransacThresh = 0
		}
		s.logger.WithField("ransac_threshold", s.ransacThresh).Info("RANSAC threshold changed")
	case "+", "=":
		s.ransacThresh += ransacStep
		s.logger.WithField("ransac_threshold", s.ransacThresh).Info("RANSAC threshold changed")
	default:
		s.logger.WithField("key", key).Debug("Ignoring unbound key")
	}
}

func (s *Server) keyState() KeyState {
	return KeyState{
		Mask:         s.view.Mask.String(),
		MaskBits:     int(s.view.Mask),
		ShowHelp:     s.view.ShowHelp,
		ShowMode:     s.view.ShowMode,
		RansacThresh: s.ransacThresh,
		Quit:         s.quit,
	}
}

// === Frames ===

// TrackerFrame is the tracker output for one video frame.
type TrackerFrame struct {
	TemplateLevel int    `json:"template_level"`
	VideoWidth    int    `json:"video_width"`
	VideoHeight   int    `json:"video_height"`
	VideoAxis     string `json:"video_axis,omitempty"`

	// Bounds are the tracked marker corners in video space.
	Bounds [4]geometry.Point `json:"bounds"`

	OpticalFlow overlay.Correspondences `json:"optical_flow"`
	Templates   overlay.Correspondences `json:"templates"`
	Features    overlay.Correspondences `json:"features"`

	// VideoPNG is an optional base64 PNG of the video frame.
	VideoPNG string `json:"video_png_base64,omitempty"`
}

// FrameResult is the rendered window for one frame.
type FrameResult struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	PNGBase64 string `json:"png_base64"`
	Level     int    `json:"level"`
	Boxes     int    `json:"boxes"`
	Bins      int    `json:"bins"`
	Crosses   int    `json:"crosses"`
	Segments  int    `json:"segments"`
}

func (s *Server) handleFrame(req *Request) *Response {
	var tf TrackerFrame
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &tf); err != nil {
			return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
		}
	}

	frame, err := s.applyFrame(&tf)
	if err != nil {
		return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	canvas, stats, err := s.render(frame)
	if err != nil {
		return s.errorResponse(req.ID, CodeRenderFailed, "Render failed", err.Error())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas.RGBA()); err != nil {
		return s.errorResponse(req.ID, CodeRenderFailed, "Render failed", err.Error())
	}

	size := canvas.Size()
	return &Response{
		ID: req.ID,
		Result: FrameResult{
			Width:     size.Width,
			Height:    size.Height,
			PNGBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
			Level:     stats.Level,
			Boxes:     stats.Boxes,
			Bins:      stats.Bins,
			Crosses:   stats.Crosses,
			Segments:  stats.Segments,
		},
	}
}

// applyFrame updates the view from tracker state and returns the frame to
// draw.
func (s *Server) applyFrame(tf *TrackerFrame) (overlay.Frame, error) {
	axis, err := parseAxis(tf.VideoAxis)
	if err != nil {
		return overlay.Frame{}, err
	}

	var video image.Image
	if tf.VideoPNG != "" {
		video, err = decodeImage(tf.VideoPNG)
		if err != nil {
			return overlay.Frame{}, fmt.Errorf("invalid video image: %w", err)
		}
		if tf.VideoWidth == 0 && tf.VideoHeight == 0 {
			b := video.Bounds()
			tf.VideoWidth, tf.VideoHeight = b.Dx(), b.Dy()
		}
	}
	if tf.VideoWidth < 0 || tf.VideoHeight < 0 {
		return overlay.Frame{}, fmt.Errorf("video size %dx%d is negative", tf.VideoWidth, tf.VideoHeight)
	}
	if tf.VideoWidth > 0 && tf.VideoHeight > 0 {
		s.view.SetVideo(tf.VideoWidth, tf.VideoHeight, axis)
	}
	s.view.ActiveLevel = s.model.ClampLevel(tf.TemplateLevel)

	return overlay.Frame{
		Video:       video,
		Bounds:      tf.Bounds,
		OpticalFlow: tf.OpticalFlow,
		Templates:   tf.Templates,
		Features:    tf.Features,
	}, nil
}

// render draws frame onto a new canvas the size of the window.
func (s *Server) render(frame overlay.Frame) (*overlay.RasterCanvas, overlay.Stats, error) {
	window := s.view.Window()
	if window.Empty() {
		return nil, overlay.Stats{}, fmt.Errorf("%w: window %s has zero area", geometry.ErrInvalidConfiguration, window)
	}
	canvas := overlay.NewRasterCanvas(window.Width, window.Height)
	stats, err := s.renderer.Render(canvas, s.view, frame)
	if err != nil {
		return nil, overlay.Stats{}, err
	}
	return canvas, stats, nil
}

// Snapshot renders one frame without tracker data and writes it to w as PNG.
func (s *Server) Snapshot(w io.Writer) error {
	canvas, _, err := s.render(overlay.Frame{})
	if err != nil {
		return err
	}
	if err := png.Encode(w, canvas.RGBA()); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

func parseAxis(s string) (geometry.Axis, error) {
	switch strings.ToLower(s) {
	case "", "down":
		return geometry.YDown, nil
	case "up":
		return geometry.YUp, nil
	}
	return geometry.YDown, fmt.Errorf("video_axis %q: want \"up\" or \"down\"", s)
}

func decodeImage(b64 string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// === Status ===

// StatusResult describes the loaded model and current view.
type StatusResult struct {
	Image          geometry.Size   `json:"image"`
	Aspect         float64         `json:"aspect"`
	Levels         []geometry.Size `json:"levels"`
	Templates      []int           `json:"templates"`
	Features       int             `json:"features"`
	MarkerConfig   string          `json:"marker_config"`
	Window         geometry.Size   `json:"window"`
	Layout         string          `json:"layout"`
	ActiveLevel    int             `json:"active_level"`
	RansacThresh   float64         `json:"ransac_threshold"`
	CorrespondMask string          `json:"mask"`
}

func (s *Server) handleStatus(req *Request) *Response {
	return &Response{
		ID: req.ID,
		Result: StatusResult{
			Image:          s.model.Reference.Size(),
			Aspect:         s.model.Reference.Aspect(),
			Levels:         s.model.Pyramid.Sizes(),
			Templates:      s.model.TemplateCounts(),
			Features:       len(s.model.Features),
			MarkerConfig:   s.markerConfig,
			Window:         s.view.Window(),
			Layout:         s.view.Status().String(),
			ActiveLevel:    s.model.ClampLevel(s.view.ActiveLevel),
			RansacThresh:   s.ransacThresh,
			CorrespondMask: s.view.Mask.String(),
		},
	}
}
