package detection

import (
	"image"

	"github.com/ironsheep/trackviz/internal/geometry"
	"github.com/ironsheep/trackviz/internal/imaging"
)

// Corner is a corner candidate and its Harris response.
type Corner struct {
	geometry.Point
	Score float64 `json:"score"`
}

// HarrisConfig controls the Harris corner detector.
type HarrisConfig struct {
	// K is the Harris sensitivity constant in det(M) - K*trace(M)^2.
	K float64

	// QualityLevel keeps responses of at least QualityLevel times the
	// strongest response in the image. Must be in (0, 1].
	QualityLevel float64
}

// DefaultHarrisConfig returns K=0.04 and QualityLevel=0.01.
func DefaultHarrisConfig() HarrisConfig {
	return HarrisConfig{K: 0.04, QualityLevel: 0.01}
}

// DetectCorners returns the Harris corners of img in scan order.
//
// # Algorithm
//
//  1. Luminance plane in [0, 1]
//  2. Sobel gradients Ix, Iy
//  3. Structure tensor entries Ix², Iy², IxIy smoothed with a 5x5 Gaussian
//  4. Response R = det - K*trace²
//  5. Keep pixels with R > 0 and R >= QualityLevel*max(R) that are local
//     maxima in their 3x3 neighbourhood
//
// On plateaus the first pixel in scan order wins, so equal responses never
// produce adjacent duplicates. The one-pixel image border is never reported.
// A uniform image yields no corners.
func DetectCorners(img *image.Gray, cfg HarrisConfig) []Corner {
	response := harrisResponse(img, cfg.K)
	height := len(response)
	if height < 3 || len(response[0]) < 3 {
		return nil
	}
	width := len(response[0])

	var maxR float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if response[y][x] > maxR {
				maxR = response[y][x]
			}
		}
	}
	if maxR <= 0 {
		return nil
	}
	threshold := cfg.QualityLevel * maxR

	corners := make([]Corner, 0)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r := response[y][x]
			if r <= 0 || r < threshold {
				continue
			}
			if !isLocalMax(response, x, y) {
				continue
			}
			corners = append(corners, Corner{
				Point: geometry.Pt(float64(x), float64(y)),
				Score: r,
			})
		}
	}
	return corners
}

// isLocalMax reports whether grid[y][x] is the 3x3 maximum. Neighbours earlier
// in scan order must be strictly smaller, later ones smaller or equal.
func isLocalMax(grid [][]float64, x, y int) bool {
	v := grid[y][x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := grid[y+dy][x+dx]
			earlier := dy < 0 || (dy == 0 && dx < 0)
			if n > v || (earlier && n == v) {
				return false
			}
		}
	}
	return true
}

// harrisResponse computes the Harris response at every pixel.
func harrisResponse(img *image.Gray, k float64) [][]float64 {
	img = imaging.ToGray(img)
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	plane := imaging.FloatPlane(img)
	gx, gy := imaging.Sobel(plane, width, height)

	ixx := make([][]float64, height)
	iyy := make([][]float64, height)
	ixy := make([][]float64, height)
	for y := 0; y < height; y++ {
		ixx[y] = make([]float64, width)
		iyy[y] = make([]float64, width)
		ixy[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			ixx[y][x] = gx[y][x] * gx[y][x]
			iyy[y][x] = gy[y][x] * gy[y][x]
			ixy[y][x] = gx[y][x] * gy[y][x]
		}
	}
	ixx = imaging.GaussianBlur(ixx, width, height)
	iyy = imaging.GaussianBlur(iyy, width, height)
	ixy = imaging.GaussianBlur(ixy, width, height)

	response := make([][]float64, height)
	for y := 0; y < height; y++ {
		response[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			a, c, bxy := ixx[y][x], iyy[y][x], ixy[y][x]
			det := a*c - bxy*bxy
			trace := a + c
			response[y][x] = det - k*trace*trace
		}
	}
	return response
}
