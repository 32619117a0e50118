//go:build purego || js

package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	cn "ccdnoise/pkg/ccdnoise"
)

// loadNonFitsImage reads a PNG/JPEG band as 16-bit luminance counts.
func loadNonFitsImage(path string) (cn.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return cn.Mat{}, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return cn.Mat{}, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]float32, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Convert to grayscale luminance (uint16 range)
			pixels[y*w+x] = float32((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
		}
	}

	return cn.NewMatFromFloat32(h, w, pixels)
}
