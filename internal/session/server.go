package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/trackviz/internal/overlay"
	"github.com/ironsheep/trackviz/internal/pipeline"
)

// Error codes reported in Response.Error.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeRenderFailed   = -32000
)

// ransacStep is the change applied by the - and + keys.
const ransacStep = 0.5

// Server drives one visualisation session: it owns the view state and
// renders frames on request.
type Server struct {
	model    *pipeline.Model
	view     *overlay.ViewState
	renderer *overlay.Renderer
	logger   *logrus.Logger

	markerConfig string
	ransacThresh float64
	quit         bool
}

// Request is one incoming event.
type Request struct {
	ID     interface{}     `json:"id"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers a single Request.
type Response struct {
	ID     interface{} `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// Error describes why a request failed.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Options configures a new Server.
type Options struct {
	// MarkerConfig is reported by status requests.
	MarkerConfig string
	// RansacThresh is the initial homography RANSAC threshold.
	RansacThresh float64
	Palette      overlay.Palette
}

// New creates a server over an already built model and view. The logger may
// be nil.
func New(model *pipeline.Model, view *overlay.ViewState, opts Options, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}
	return &Server{
		model:        model,
		view:         view,
		renderer:     overlay.NewRenderer(model, opts.Palette, logger),
		logger:       logger,
		markerConfig: opts.MarkerConfig,
		ransacThresh: opts.RansacThresh,
	}
}

// Run reads requests from in, one JSON object per line, and writes one
// response line per request to out. It returns when in is exhausted or a
// quit key is received.
func (s *Server) Run(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Frames may carry a base64 video image.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		var resp *Response
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.WithError(err).Warn("Failed to parse request")
			resp = s.errorResponse(nil, CodeParseError, "Parse error", err.Error())
		} else {
			resp = s.handleRequest(&req)
		}

		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if s.quit {
			s.logger.Info("Quit requested")
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to the matching handler.
func (s *Server) handleRequest(req *Request) *Response {
	s.logger.WithFields(logrus.Fields{
		"id":   req.ID,
		"type": req.Type,
	}).Debug("Handling request")

	switch req.Type {
	case "resize":
		return s.handleResize(req)
	case "key":
		return s.handleKey(req)
	case "frame":
		return s.handleFrame(req)
	case "status":
		return s.handleStatus(req)
	default:
		return s.errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Unknown request type: %s", req.Type), "")
	}
}

// errorResponse creates an error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *Response {
	return &Response{
		ID: id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
