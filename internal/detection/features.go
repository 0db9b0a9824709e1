package detection

import (
	"fmt"
	"image"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/anthonynsimon/bild/blur"

	"github.com/ironsheep/trackviz/internal/geometry"
	"github.com/ironsheep/trackviz/internal/imaging"
)

// DetectorType selects where keypoint candidates come from.
type DetectorType int

const (
	// DetectorFAST uses FAST-9 segment-test corners ranked by Harris response.
	DetectorFAST DetectorType = iota
	// DetectorHarris uses the Harris corner detector directly.
	DetectorHarris
)

func (d DetectorType) String() string {
	switch d {
	case DetectorFAST:
		return "fast"
	case DetectorHarris:
		return "harris"
	}
	return fmt.Sprintf("DetectorType(%d)", int(d))
}

// ParseDetectorType parses "fast" or "harris" (case-insensitive).
func ParseDetectorType(s string) (DetectorType, error) {
	switch strings.ToLower(s) {
	case "fast":
		return DetectorFAST, nil
	case "harris":
		return DetectorHarris, nil
	}
	return 0, fmt.Errorf("%w: unknown detector type %q", geometry.ErrInvalidConfiguration, s)
}

const (
	descriptorBits = 256

	// Radius of the disc used for orientation and descriptor sampling.
	patchRadius = 15
	// Sample pairs stay inside this radius so rotated samples remain in the patch.
	sampleRadius = 13
	// Keypoints closer than this to any edge have no complete patch.
	borderMargin = patchRadius + 1

	briefSeed = 0x5EED
)

// Descriptor is a 256-bit binary descriptor.
type Descriptor [descriptorBits / 8]byte

// Keypoint is a feature point in full-resolution reference-image space.
type Keypoint struct {
	geometry.Point
	Score      float64    `json:"score"`
	Angle      float64    `json:"angle"` // radians, intensity-centroid orientation
	Descriptor Descriptor `json:"-"`
}

// FeatureConfig controls the feature detector.
type FeatureConfig struct {
	Type DetectorType

	// Threshold is the FAST intensity difference (0-255).
	Threshold int

	// MaxFeatures caps the number of keypoints; the strongest are kept.
	// Zero means unlimited.
	MaxFeatures int

	// BlurRadius is the Gaussian radius applied before descriptor sampling.
	BlurRadius float64

	// Harris configures scoring and, for DetectorHarris, candidate detection.
	Harris HarrisConfig
}

// DefaultFeatureConfig returns a FAST detector with threshold 20, at most 500
// features and a blur radius of 2.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Type:        DetectorFAST,
		Threshold:   20,
		MaxFeatures: 500,
		BlurRadius:  2,
		Harris:      DefaultHarrisConfig(),
	}
}

// samplePair is one descriptor test: compare intensity at (x1,y1) and (x2,y2).
type samplePair struct {
	x1, y1, x2, y2 float64
}

// FeatureDetector finds keypoints and computes their descriptors. It holds no
// per-image state and may be reused.
type FeatureDetector struct {
	cfg   FeatureConfig
	pairs [descriptorBits]samplePair
}

// NewFeatureDetector validates cfg and prepares the sampling pattern.
func NewFeatureDetector(cfg FeatureConfig) (*FeatureDetector, error) {
	if cfg.Type != DetectorFAST && cfg.Type != DetectorHarris {
		return nil, fmt.Errorf("%w: detector type %v", geometry.ErrInvalidConfiguration, cfg.Type)
	}
	if cfg.Threshold < 1 || cfg.Threshold > 255 {
		return nil, fmt.Errorf("%w: FAST threshold %d outside 1-255", geometry.ErrInvalidConfiguration, cfg.Threshold)
	}
	if cfg.MaxFeatures < 0 {
		return nil, fmt.Errorf("%w: max features %d is negative", geometry.ErrInvalidConfiguration, cfg.MaxFeatures)
	}
	if cfg.Harris.QualityLevel <= 0 || cfg.Harris.QualityLevel > 1 {
		return nil, fmt.Errorf("%w: Harris quality level %g outside (0,1]", geometry.ErrInvalidConfiguration, cfg.Harris.QualityLevel)
	}

	d := &FeatureDetector{cfg: cfg}
	rng := rand.New(rand.NewSource(briefSeed))
	for i := range d.pairs {
		x1 := sampleCoord(rng)
		y1 := sampleInDisc(rng, x1)
		x2 := sampleCoord(rng)
		y2 := sampleInDisc(rng, x2)
		d.pairs[i] = samplePair{x1: x1, y1: y1, x2: x2, y2: y2}
	}
	return d, nil
}

func sampleCoord(rng *rand.Rand) float64 {
	return float64(rng.Intn(2*sampleRadius+1) - sampleRadius)
}

// sampleInDisc picks y so that (x, y) lies inside the sampling disc.
func sampleInDisc(rng *rand.Rand, x float64) float64 {
	limit := int(math.Sqrt(sampleRadius*sampleRadius - x*x))
	return float64(rng.Intn(2*limit+1) - limit)
}

// Detect returns the keypoints of img, strongest first.
//
// Keypoints whose orientation/descriptor patch would leave the image are
// dropped. An image too small to hold a single patch yields no keypoints.
func (d *FeatureDetector) Detect(img *image.Gray) []Keypoint {
	img = imaging.ToGray(img)
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 2*borderMargin || height <= 2*borderMargin {
		return []Keypoint{}
	}

	var candidates []Corner
	switch d.cfg.Type {
	case DetectorHarris:
		candidates = DetectCorners(img, d.cfg.Harris)
	default:
		candidates = d.fastCorners(img)
	}

	inside := make([]Corner, 0, len(candidates))
	for _, c := range candidates {
		x, y := int(c.X), int(c.Y)
		if x < borderMargin || y < borderMargin || x >= width-borderMargin || y >= height-borderMargin {
			continue
		}
		inside = append(inside, c)
	}

	sort.SliceStable(inside, func(i, j int) bool {
		return inside[i].Score > inside[j].Score
	})
	if d.cfg.MaxFeatures > 0 && len(inside) > d.cfg.MaxFeatures {
		inside = inside[:d.cfg.MaxFeatures]
	}

	smoothed := img
	if d.cfg.BlurRadius > 0 {
		smoothed = imaging.ToGray(blur.Gaussian(img, d.cfg.BlurRadius))
	}

	keypoints := make([]Keypoint, 0, len(inside))
	for _, c := range inside {
		x, y := int(c.X), int(c.Y)
		angle := orientation(img, x, y)
		keypoints = append(keypoints, Keypoint{
			Point:      c.Point,
			Score:      c.Score,
			Angle:      angle,
			Descriptor: d.describe(smoothed, x, y, angle),
		})
	}
	return keypoints
}

// fastOffsets is the Bresenham circle of radius 3 used by the FAST test.
var fastOffsets = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// fastCorners runs the FAST-9 segment test and keeps candidates that are
// Harris-response maxima among neighbouring candidates.
func (d *FeatureDetector) fastCorners(img *image.Gray) []Corner {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	response := harrisResponse(img, d.cfg.Harris.K)

	score := make([][]float64, height)
	hit := make([][]bool, height)
	for y := range score {
		score[y] = make([]float64, width)
		hit[y] = make([]bool, width)
	}

	t := d.cfg.Threshold
	for y := 3; y < height-3; y++ {
		for x := 3; x < width-3; x++ {
			if isFASTCorner(img, x, y, t) {
				hit[y][x] = true
				score[y][x] = response[y][x]
			}
		}
	}

	corners := make([]Corner, 0)
	for y := 3; y < height-3; y++ {
		for x := 3; x < width-3; x++ {
			if !hit[y][x] || !fastLocalMax(score, hit, x, y) {
				continue
			}
			corners = append(corners, Corner{
				Point: geometry.Pt(float64(x), float64(y)),
				Score: score[y][x],
			})
		}
	}
	return corners
}

func fastLocalMax(score [][]float64, hit [][]bool, x, y int) bool {
	v := score[y][x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if (dx == 0 && dy == 0) || !hit[y+dy][x+dx] {
				continue
			}
			n := score[y+dy][x+dx]
			earlier := dy < 0 || (dy == 0 && dx < 0)
			if n > v || (earlier && n == v) {
				return false
			}
		}
	}
	return true
}

// isFASTCorner reports whether 9 contiguous circle pixels are all brighter
// than centre+t or all darker than centre-t.
func isFASTCorner(img *image.Gray, x, y, t int) bool {
	center := int(img.Pix[y*img.Stride+x])
	var brighter, darker int
	// Walk the circle twice so runs may wrap around.
	for i := 0; i < 32; i++ {
		o := fastOffsets[i%16]
		p := int(img.Pix[(y+o[1])*img.Stride+x+o[0]])
		switch {
		case p > center+t:
			brighter++
			darker = 0
		case p < center-t:
			darker++
			brighter = 0
		default:
			brighter, darker = 0, 0
		}
		if brighter >= 9 || darker >= 9 {
			return true
		}
	}
	return false
}

// orientation returns the intensity-centroid angle of the disc around (x, y).
func orientation(img *image.Gray, x, y int) float64 {
	var m01, m10 float64
	for dy := -patchRadius; dy <= patchRadius; dy++ {
		row := img.Pix[(y+dy)*img.Stride:]
		for dx := -patchRadius; dx <= patchRadius; dx++ {
			if dx*dx+dy*dy > patchRadius*patchRadius {
				continue
			}
			v := float64(row[x+dx])
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return math.Atan2(m01, m10)
}

// describe evaluates the steered binary tests around (x, y).
func (d *FeatureDetector) describe(img *image.Gray, x, y int, angle float64) Descriptor {
	var desc Descriptor
	sin, cos := math.Sincos(angle)
	at := func(px, py float64) uint8 {
		rx := x + int(math.Round(px*cos-py*sin))
		ry := y + int(math.Round(px*sin+py*cos))
		return img.Pix[ry*img.Stride+rx]
	}
	for i, p := range d.pairs {
		if at(p.x1, p.y1) < at(p.x2, p.y2) {
			desc[i/8] |= 1 << uint(i%8)
		}
	}
	return desc
}
