package ccdnoise

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSkyProfileSigma is the width of the sky background curve shown next to the
// sky slider.
const DefaultSkyProfileSigma = 2.0

// Summarize computes min, max, mean and standard deviation over the finite pixels of m.
func Summarize(m Mat) ImageSummary {
	s := ImageSummary{Rows: m.Rows(), Cols: m.Cols()}
	if m.Empty() {
		return s
	}
	c := m.Clone()
	defer c.Close()

	data := c.DataFloat32()[:s.Rows*s.Cols]
	values := make([]float64, 0, len(data))
	for _, v := range data {
		if !isFinite32(v) {
			s.NonFinite++
			continue
		}
		if v < 0 {
			s.Negative++
		}
		values = append(values, float64(v))
	}
	if len(values) == 0 {
		return s
	}

	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	if len(values) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	} else {
		s.Mean = values[0]
	}
	return s
}

// SignalToNoise returns S / sqrt(S + B + R^2) for signal and sky in electrons and read
// noise in electrons RMS. It is zero when there is no variance at all.
func SignalToNoise(signal, sky, readNoise float64) float64 {
	variance := signal + sky + readNoise*readNoise
	if variance <= 0 {
		return 0
	}
	return signal / math.Sqrt(variance)
}

// ExpectedSNR scales per-second flux and sky rates by the exposure time; read noise is
// independent of exposure.
func ExpectedSNR(flux, sky, readNoise, exposureTime float64) float64 {
	return SignalToNoise(flux*exposureTime, sky*exposureTime, readNoise)
}

// ClassifyRegime reports which variance term dominates S + B + R^2.
func ClassifyRegime(signal, sky, readNoise float64) NoiseRegime {
	readVar := readNoise * readNoise
	switch {
	case signal >= sky && signal >= readVar:
		return RegimeSignalLimited
	case sky >= readVar:
		return RegimeBackgroundLimited
	default:
		return RegimeDetectorLimited
	}
}

// SkyProfile samples exp(-(x-mean)^2 / (2 sigma^2)) over [lo, hi) in steps of step.
func SkyProfile(mean, sigma, lo, hi, step float64) []ProfilePoint {
	if step <= 0 || hi <= lo || sigma <= 0 {
		return nil
	}
	n := int(math.Ceil((hi - lo) / step))
	points := make([]ProfilePoint, 0, n)
	for i := 0; i < n; i++ {
		x := lo + float64(i)*step
		d := x - mean
		points = append(points, ProfilePoint{X: x, Y: math.Exp(-d * d / (2 * sigma * sigma))})
	}
	return points
}
