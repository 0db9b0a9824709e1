// Package geometry maps points between the coordinate spaces used by the
// tracking overlay.
//
// Three kinds of space are involved when a frame is drawn:
//
//   - Reference-image space: pixels of the loaded reference image.
//   - Pyramid-level space: pixels of one downsampled copy of the reference.
//   - Live-video space: pixels of the camera frame the tracker processed.
//
// All of them are drawn into screen space, whose origin is the bottom-left
// corner of the window with Y increasing upward. Each Space records its own
// vertical axis direction; a Y flip is applied only when the source space and
// the screen disagree. Pyramid-level points are first scaled into reference
// space (both axes point down, so no flip) and then drawn like any other
// reference point.
//
// # Zoom
//
// Every source extent is shown with a uniform "fit" zoom:
//
//	zoom = min(destWidth/sourceWidth, destHeight/sourceHeight)
//
// ViewState owns the zoom factors and viewports. They are recomputed after a
// resize before anything is drawn; reading a stale layout recomputes it.
//
// # Errors
//
// Non-positive extents, zero-area viewports and similar inputs are reported
// with errors wrapping ErrInvalidConfiguration.
package geometry
