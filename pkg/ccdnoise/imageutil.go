/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package ccdnoise

import (
	"math"
)

// KappaSigmaParams controls the iterative background estimate.
type KappaSigmaParams struct {
	ClippingMultiplier float64
	AllowedError       float64
	MaxIterations      int
	// ExcludeClamped drops pixels at or below zero from every pass, the first included.
	// A readout clamps negative charge to zero, so those pixels carry no background level.
	ExcludeClamped bool
}

// NewKappaSigmaParams returns the defaults used for simulated readouts.
func NewKappaSigmaParams() *KappaSigmaParams {
	return &KappaSigmaParams{
		ClippingMultiplier: 4.0,
		AllowedError:       0.00001,
		MaxIterations:      5,
		ExcludeClamped:     true,
	}
}

// KappaSigmaResult holds noise estimation results.
type KappaSigmaResult struct {
	Sigma          float64
	BackgroundMean float64
	NumIterations  int
	// Pixels counted in the final pass.
	Pixels int
	// Clamped is the number of finite pixels at or below zero.
	Clamped int
}

// KappaSigmaNoiseEstimate performs iterative kappa-sigma noise estimation of a
// readout in electrons. Pixels at or below zero are left out after the first pass,
// and from the first pass too when p.ExcludeClamped is set. A nil p uses
// NewKappaSigmaParams. A frame with no usable pixels yields a zero result.
func KappaSigmaNoiseEstimate(img Mat, p *KappaSigmaParams) KappaSigmaResult {
	if p == nil {
		p = NewKappaSigmaParams()
	}
	if img.Empty() {
		return KappaSigmaResult{}
	}
	maskMat := NewMat()
	defer maskMat.Close()

	threshold := float32(math.MaxFloat32)
	lastSigma := 1.0
	lastBackgroundMean := 1.0
	lastPixels := 0
	numIterations := 0

	for numIterations < p.MaxIterations {
		var meanVal, sigmaVal float64
		var pixels int

		if numIterations > 0 || p.ExcludeClamped {
			inRangeScalar(img, math.SmallestNonzeroFloat32, threshold, &maskMat)
			meanVal, sigmaVal, pixels = meanStdDevWithMask(img, maskMat)
		} else {
			meanVal, sigmaVal = matMeanStdDev(img)
			pixels = img.Rows() * img.Cols()
		}
		if pixels == 0 {
			lastSigma, lastBackgroundMean, lastPixels = 0, 0, 0
			numIterations++
			break
		}

		numIterations++
		if numIterations > 1 {
			if math.Abs(sigmaVal-lastSigma) <= p.AllowedError {
				lastSigma = sigmaVal
				lastBackgroundMean = meanVal
				lastPixels = pixels
				break
			}
		}
		threshold = float32(meanVal + p.ClippingMultiplier*sigmaVal)
		lastSigma = sigmaVal
		lastBackgroundMean = meanVal
		lastPixels = pixels
	}

	return KappaSigmaResult{
		Sigma:          lastSigma,
		BackgroundMean: lastBackgroundMean,
		NumIterations:  numIterations,
		Pixels:         lastPixels,
		Clamped:        countClamped(img),
	}
}

// meanStdDevWithMask computes mean, stddev and count of pixels where mask is non-zero.
func meanStdDevWithMask(img Mat, mask Mat) (float64, float64, int) {
	imgData := img.DataFloat32()
	maskData := mask.DataFloat32()
	numPixels := img.Rows() * img.Cols()

	var sum float64
	var count int
	for i := 0; i < numPixels; i++ {
		if maskData[i] != 0 {
			sum += float64(imgData[i])
			count++
		}
	}
	if count == 0 {
		return 0, 0, 0
	}
	mean := sum / float64(count)

	var sse float64
	for i := 0; i < numPixels; i++ {
		if maskData[i] != 0 {
			diff := float64(imgData[i]) - mean
			sse += diff * diff
		}
	}
	return mean, math.Sqrt(sse / float64(count)), count
}

func countClamped(img Mat) int {
	n := 0
	for _, v := range img.DataFloat32()[:img.Rows()*img.Cols()] {
		if isFinite32(v) && v <= 0 {
			n++
		}
	}
	return n
}
