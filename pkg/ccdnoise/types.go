package ccdnoise

import (
	"fmt"
	"image"
	"strings"
)

// RescaleFunc selects the nonlinearity applied to a band after clipping.
type RescaleFunc int

const (
	RescaleSqrt RescaleFunc = iota
	RescaleAsinh
	RescaleLog10
	RescaleLoge
)

func (f RescaleFunc) String() string {
	switch f {
	case RescaleSqrt:
		return "sqrt"
	case RescaleAsinh:
		return "asinh"
	case RescaleLog10:
		return "log10"
	case RescaleLoge:
		return "loge"
	default:
		return fmt.Sprintf("RescaleFunc(%d)", int(f))
	}
}

// Logarithmic reports whether f is undefined at zero.
func (f RescaleFunc) Logarithmic() bool {
	return f == RescaleLog10 || f == RescaleLoge
}

// ParseRescaleFunc maps "sqrt", "asinh", "log10" or "loge" to a RescaleFunc.
func ParseRescaleFunc(name string) (RescaleFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqrt":
		return RescaleSqrt, nil
	case "asinh":
		return RescaleAsinh, nil
	case "log10":
		return RescaleLog10, nil
	case "loge", "ln":
		return RescaleLoge, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedRescale, name)
}

// Bounds is a clipping window applied to one band before rescaling.
type Bounds struct {
	Min float64
	Max float64
}

// Band indices used by CompositeParams.Bounds.
const (
	BandBlue = iota
	BandGreen
	BandRed
)

var bandNames = [3]string{"blue", "green", "red"}

// CompositeParams configures Compose. A nil entry in Bounds clips that band to its own
// observed range; a nil ROI returns the whole composite.
type CompositeParams struct {
	Func   RescaleFunc
	Bounds [3]*Bounds
	ROI    *image.Rectangle
}

// NewCompositeParams creates a CompositeParams with default values.
func NewCompositeParams() *CompositeParams {
	return &CompositeParams{
		Func: RescaleSqrt,
		Bounds: [3]*Bounds{
			{Min: 0, Max: 1},
			{Min: 0, Max: 1},
			{Min: 0, Max: 1},
		},
	}
}

// Standard deviations of the per-pixel sky and flux draws.
const (
	DefaultSkySigma  = 5.0
	DefaultFluxSigma = 0.5
)

// NoiseParams contains the CCD noise model parameters.
type NoiseParams struct {
	// ExposureTime in seconds.
	ExposureTime float64
	// SkyValue is the mean sky background in electrons per pixel.
	SkyValue float64
	// ReadNoise in electrons per pixel (standard deviation of the readout).
	ReadNoise float64
	SkySigma  float64
	FluxSigma float64
}

// NewNoiseParams creates a NoiseParams with default values.
func NewNoiseParams() *NoiseParams {
	return &NoiseParams{
		ExposureTime: 100,
		SkyValue:     0,
		ReadNoise:    0,
		SkySigma:     DefaultSkySigma,
		FluxSigma:    DefaultFluxSigma,
	}
}

func (p *NoiseParams) String() string {
	return fmt.Sprintf("{ExposureTime=%g, SkyValue=%g, ReadNoise=%g, SkySigma=%g, FluxSigma=%g}",
		p.ExposureTime, p.SkyValue, p.ReadNoise, p.SkySigma, p.FluxSigma)
}

// NoiseRegime names the term that dominates the noise budget.
type NoiseRegime int

const (
	RegimeSignalLimited NoiseRegime = iota
	RegimeBackgroundLimited
	RegimeDetectorLimited
)

func (r NoiseRegime) String() string {
	switch r {
	case RegimeSignalLimited:
		return "signal-limited"
	case RegimeBackgroundLimited:
		return "background-limited"
	case RegimeDetectorLimited:
		return "detector-limited"
	default:
		return "Unknown"
	}
}

// ImageSummary holds basic statistics of a frame. Min, Max, Mean and StdDev
// cover finite pixels only.
type ImageSummary struct {
	Rows      int
	Cols      int
	Min       float64
	Max       float64
	Mean      float64
	StdDev    float64
	NonFinite int
	Negative  int
}

func (s ImageSummary) String() string {
	return fmt.Sprintf("{%dx%d, Min=%f, Max=%f, Mean=%f, StdDev=%f, NonFinite=%d, Negative=%d}",
		s.Cols, s.Rows, s.Min, s.Max, s.Mean, s.StdDev, s.NonFinite, s.Negative)
}

// ProfilePoint is one sample of a 1D curve.
type ProfilePoint struct {
	X, Y float64
}
