package ccdnoise

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// RescaleBand clips band to bounds, shifts the window to start at zero and applies fn.
// A nil bounds uses the band's own finite min/max. The input is not modified.
//
// Logarithmic functions map the bottom of the window to -Inf; in that case the
// rescaled band is returned together with a *NonFiniteError.
func RescaleBand(band Mat, fn RescaleFunc, bounds *Bounds) (Mat, error) {
	if band.Empty() {
		return Mat{}, ErrEmptyImage
	}
	apply, err := rescaleKernel(fn)
	if err != nil {
		return Mat{}, err
	}

	out := band.Clone()
	data := out.DataFloat32()[:out.Rows()*out.Cols()]

	var lo, hi float64
	if bounds != nil {
		lo, hi = bounds.Min, bounds.Max
	} else {
		lo, hi = matMinMax(out)
	}

	for i, v := range data {
		x := float64(v)
		// NaN fails both comparisons and flows through unchanged
		if x < lo {
			x = lo
		} else if x > hi {
			x = hi
		}
		x -= lo
		if x < 0 {
			x = 0
		}
		data[i] = float32(apply(x))
	}

	return out, checkFinite("rescale "+fn.String(), data)
}

func rescaleKernel(fn RescaleFunc) (func(float64) float64, error) {
	switch fn {
	case RescaleSqrt:
		return math.Sqrt, nil
	case RescaleAsinh:
		return math.Asinh, nil
	case RescaleLog10:
		return math.Log10, nil
	case RescaleLoge:
		return math.Log, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedRescale, fn)
}

// CommonExtent returns the largest origin-anchored rectangle contained in every mat.
func CommonExtent(mats ...Mat) image.Rectangle {
	if len(mats) == 0 {
		return image.Rectangle{}
	}
	rows, cols := mats[0].Rows(), mats[0].Cols()
	for _, m := range mats[1:] {
		rows = min(rows, m.Rows())
		cols = min(cols, m.Cols())
	}
	return image.Rect(0, 0, cols, rows)
}

// Compose combines blue, green and red exposures into one grayscale frame.
//
// The bands are cropped from the origin to their common extent (no registration or
// resampling), rescaled independently with the shared function and their own bounds,
// averaged, and finally cropped to p.ROI when set. A nil p uses NewCompositeParams.
func Compose(blue, green, red Mat, p *CompositeParams) (Mat, error) {
	if p == nil {
		p = NewCompositeParams()
	}
	bands := [3]Mat{blue, green, red}
	for i, b := range bands {
		if b.Empty() {
			return Mat{}, fmt.Errorf("%s band: %w", bandNames[i], ErrEmptyImage)
		}
	}

	extent := CommonExtent(blue, green, red)
	if extent.Empty() {
		return Mat{}, ErrEmptyImage
	}
	if p.ROI != nil && (p.ROI.Empty() || !p.ROI.In(extent)) {
		return Mat{}, fmt.Errorf("%w: %v not in %v", ErrROIOutOfBounds, *p.ROI, extent)
	}

	var rescaled [3]Mat
	for i, b := range bands {
		cropped := cropMat(b, extent)
		r, err := RescaleBand(cropped, p.Func, p.Bounds[i])
		cropped.Close()
		if err != nil && !errors.Is(err, ErrNonFiniteOutput) {
			for j := 0; j < i; j++ {
				rescaled[j].Close()
			}
			return Mat{}, fmt.Errorf("%s band: %w", bandNames[i], err)
		}
		rescaled[i] = r
	}
	defer func() {
		for i := range rescaled {
			rescaled[i].Close()
		}
	}()

	composite := NewMatWithSize(extent.Dy(), extent.Dx())
	dst := composite.DataFloat32()
	b, g, r := rescaled[0].DataFloat32(), rescaled[1].DataFloat32(), rescaled[2].DataFloat32()
	n := extent.Dx() * extent.Dy()
	for i := 0; i < n; i++ {
		dst[i] = float32((float64(b[i]) + float64(g[i]) + float64(r[i])) / 3.0)
	}

	if p.ROI != nil {
		zoomed := cropMat(composite, *p.ROI)
		composite.Close()
		composite = zoomed
	}

	return composite, checkFinite("compose", composite.DataFloat32()[:composite.Rows()*composite.Cols()])
}
