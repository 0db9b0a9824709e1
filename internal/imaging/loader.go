package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/trackviz/internal/geometry"
)

// ImageCache provides thread-safe caching of decoded reference images keyed by
// their file path.
//
// Once an image is loaded, subsequent LoadReference() calls for the same path
// return the cached Reference without disk I/O. References are immutable, so
// sharing the cached value is safe.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	ref, err := cache.LoadReference("/path/to/marker.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
type ImageCache struct {
	mu         sync.RWMutex
	references map[string]*Reference
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		references: make(map[string]*Reference),
	}
}

// Reference is the single-channel reference image a session is built around.
// It is owned for the lifetime of the session and never modified.
type Reference struct {
	// Path is the file the image was decoded from (empty for in-memory images).
	Path string

	// Gray holds the luminance pixels, with bounds starting at (0,0).
	Gray *image.Gray
}

// NewReference wraps an already decoded image, converting it to grayscale.
func NewReference(img image.Image) (*Reference, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty reference image", geometry.ErrInvalidConfiguration)
	}
	return &Reference{Gray: ToGray(img)}, nil
}

// Size returns the reference dimensions in pixels.
func (r *Reference) Size() geometry.Size {
	b := r.Gray.Bounds()
	return geometry.Size{Width: b.Dx(), Height: b.Dy()}
}

// Aspect returns width / height.
func (r *Reference) Aspect() float64 {
	s := r.Size()
	return float64(s.Width) / float64(s.Height)
}

// LoadReference retrieves a reference from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG and GIF. Colour images are reduced to
// luminance. The cache key is the exact path string.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid PNG, JPEG, or GIF image
//   - Returns error if the decoded image has no pixels
func (c *ImageCache) LoadReference(path string) (*Reference, error) {
	c.mu.RLock()
	if ref, ok := c.references[path]; ok {
		c.mu.RUnlock()
		return ref, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	ref, err := NewReference(img)
	if err != nil {
		return nil, err
	}
	ref.Path = path

	c.mu.Lock()
	c.references[path] = ref
	c.mu.Unlock()

	return ref, nil
}

// ToGray converts any image to an *image.Gray whose bounds start at (0,0).
//
// *image.Gray inputs already anchored at the origin are returned as-is.
// Everything else goes through imaging.Grayscale, which applies the
// ITU-R BT.601 luminance weights.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	nrgba := imaging.Grayscale(img)
	return grayFromNRGBA(nrgba)
}

// grayFromNRGBA copies the red channel of a grey NRGBA image.
func grayFromNRGBA(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srow := src.Pix[y*src.Stride:]
		drow := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			drow[x] = srow[x*4]
		}
	}
	return dst
}
