// Package overlay lays out the reference and live-video panes in a window and
// draws the tracking diagnostics on top of them.
//
// # Screen Space
//
// Every drawing command uses window coordinates with the origin at the
// bottom-left corner and Y growing upward. The video occupies the left half
// of the window and the reference image the right half, each fitted without
// cropping and aligned to the top edge. Points reach the screen through the
// Pane of their space, which applies the zoom and any vertical flip.
//
// # View State
//
// ViewState carries the window size, video size, active pyramid level,
// correspondence mask and display toggles. Resizing the window or changing
// the video size marks the layout Stale; the next Layout call recomputes it,
// so a frame is never drawn with an outdated zoom.
//
// # Drawing
//
// Renderer emits commands to a Canvas. RasterCanvas implements Canvas on an
// in-memory RGBA image.
package overlay
