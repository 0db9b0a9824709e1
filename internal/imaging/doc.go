// Package imaging loads the reference image and provides the low-level image
// operations the template pipeline is built on.
//
// This package implements reference loading and caching, conversion to
// single-channel planes, Sobel gradients and Gaussian smoothing on float
// planes, and the multi-resolution pyramid. All operations work on *image.Gray
// with (0,0) at the top-left corner, X increasing rightward and Y increasing
// downward.
//
// # Pyramid
//
// BuildPyramid produces levels 0..L where level 0 is the unmodified source
// and level k is a 2x area (box) reduction of level k-1, with integer floor
// on both dimensions. A source smaller than 2^L in either dimension is
// rejected with an error wrapping geometry.ErrInvalidConfiguration; no partial
// pyramid is returned.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Pyramids and references
// are never mutated after construction.
package imaging
