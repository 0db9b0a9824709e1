// Package session runs an interactive visualisation session over a
// line-delimited JSON stream.
//
// # Protocol
//
// Each input line is one request and produces exactly one response line:
//
//	{"id": 1, "type": "resize", "params": {"width": 1280, "height": 720}}
//	{"id": 2, "type": "key",    "params": {"key": " "}}
//	{"id": 3, "type": "frame",  "params": {"template_level": 1, "video_width": 640, ...}}
//	{"id": 4, "type": "status"}
//
// Request types:
//   - resize: set the window size; the layout is recomputed on the next frame
//   - key: apply a keyboard action and report the resulting display state
//   - frame: render the window for one tracker frame, returned as base64 PNG
//   - status: describe the loaded model and the current view
//
// # Keys
//
//   - ? or /: show/hide help
//   - m: show/hide mode information
//   - space: cycle the correspondence mask through all eight combinations
//   - - and + (or =): lower/raise the RANSAC threshold by 0.5
//   - q, Q or esc: end the session after responding
//
// # Error Handling
//
// Failed requests produce a response with an error object:
//   - code: -32700 (unparsable line), -32601 (unknown type), -32602 (invalid
//     params) or -32000 (rendering failed)
//   - message: human-readable summary
//   - data: the underlying Go error string
//
// The loop keeps running after an error response.
package session
