package imaging

import (
	"image"
)

// FloatPlane converts a grayscale image to a row-major plane of luminance
// values in [0, 1], indexed plane[y][x].
func FloatPlane(img *image.Gray) [][]float64 {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	plane := make([][]float64, height)
	for y := 0; y < height; y++ {
		plane[y] = make([]float64, width)
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			plane[y][x] = float64(row[x]) / 255.0
		}
	}
	return plane
}

// Sobel computes horizontal and vertical image gradients with the 3x3 Sobel
// operators:
//
//	Gx:  -1 0 1     Gy:  -1 -2 -1
//	     -2 0 2           0  0  0
//	     -1 0 1           1  2  1
//
// Border pixels use clamped (replicated) edge values.
func Sobel(plane [][]float64, width, height int) (gradX, gradY [][]float64) {
	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	gradX = make([][]float64, height)
	gradY = make([][]float64, height)
	for y := 0; y < height; y++ {
		gradX[y] = make([]float64, width)
		gradY[y] = make([]float64, width)

		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := Clamp(y+ky, 0, height-1)
					px := Clamp(x+kx, 0, width-1)
					gx += plane[py][px] * sobelX[ky+1][kx+1]
					gy += plane[py][px] * sobelY[ky+1][kx+1]
				}
			}
			gradX[y][x] = gx
			gradY[y][x] = gy
		}
	}
	return gradX, gradY
}

// binomial5 is the 5-tap binomial approximation of a Gaussian (sigma about 1).
var binomial5 = [5]float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// GaussianBlur smooths plane with binomial5 along rows, then along columns.
// Samples past the border repeat the edge value, so a constant plane stays
// constant.
func GaussianBlur(plane [][]float64, width, height int) [][]float64 {
	rows := make([][]float64, height)
	for y := range rows {
		rows[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var acc float64
			for i, w := range binomial5 {
				acc += w * plane[y][Clamp(x+i-2, 0, width-1)]
			}
			rows[y][x] = acc
		}
	}

	out := make([][]float64, height)
	for y := range out {
		out[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var acc float64
			for i, w := range binomial5 {
				acc += w * rows[Clamp(y+i-2, 0, height-1)][x]
			}
			out[y][x] = acc
		}
	}
	return out
}

// Clamp limits v to lo..hi.
func Clamp(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
