//go:build !purego && !js

package main

import (
	"fmt"

	"gocv.io/x/gocv"

	cn "ccdnoise/pkg/ccdnoise"
)

// loadNonFitsImage reads a PNG/JPEG/TIFF band as luminance counts at its native depth.
func loadNonFitsImage(path string) (cn.Mat, error) {
	src := gocv.IMRead(path, gocv.IMReadGrayScale|gocv.IMReadAnyDepth)
	if src.Empty() {
		return cn.Mat{}, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	src.ConvertTo(&floatMat, gocv.MatTypeCV32F)

	data, err := floatMat.DataPtrFloat32()
	if err != nil {
		return cn.Mat{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return cn.NewMatFromFloat32(floatMat.Rows(), floatMat.Cols(), data)
}
