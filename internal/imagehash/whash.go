package imagehash

import "image"

// whashSize is the side length of the low-frequency coefficient block kept
// after one level of Haar decomposition, matching the other algorithms'
// 64-bit (8x8) output.
const whashSize = 8

// waveletHash is a hand-rolled wavelet-style perceptual hash: goimagehash
// has no whash equivalent, so this reproduces the shape of the original
// algorithm (grayscale, single-level Haar decomposition down to an 8x8
// low-frequency band, threshold against the band's median) without pulling
// in a wavelet library for one algorithm.
func waveletHash(img image.Image) []byte {
	gray := grayscaleResize(img, whashSize*2, whashSize*2)
	ll := haarLowLow(gray, whashSize*2)

	median := medianOf(ll)

	var bits uint64

	for i, v := range ll {
		if v > median {
			bits |= 1 << uint(63-i)
		}
	}

	return uint64ToBytes(bits)
}

// grayscaleResize nearest-neighbor resizes img to w x h and returns the
// row-major grayscale samples as float64 in [0, 255].
func grayscaleResize(img image.Image, w, h int) []float64 {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	out := make([]float64, w*h)

	for y := range h {
		srcY := bounds.Min.Y + y*srcH/h
		for x := range w {
			srcX := bounds.Min.X + x*srcW/w

			r, g, b, _ := img.At(srcX, srcY).RGBA()
			// RGBA returns 16-bit channels; average down to 8-bit luma.
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 256
			out[y*w+x] = lum
		}
	}

	return out
}

// haarLowLow applies one level of 1D Haar averaging along rows then columns
// of an n x n grayscale grid, returning the (n/2) x (n/2) low-low band in
// row-major order.
func haarLowLow(gray []float64, n int) []float64 {
	half := n / 2

	rowLow := make([]float64, half*n)
	for y := range n {
		for x := range half {
			a, b := gray[y*n+2*x], gray[y*n+2*x+1]
			rowLow[y*half+x] = (a + b) / 2
		}
	}

	ll := make([]float64, half*half)
	for y := range half {
		for x := range half {
			a, b := rowLow[2*y*half+x], rowLow[(2*y+1)*half+x]
			ll[y*half+x] = (a + b) / 2
		}
	}

	return ll
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}

	return sorted[mid]
}
