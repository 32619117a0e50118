package ccdnoise

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Size and value range of the synthetic base model.
const (
	DefaultRandomModelSize  = 250
	DefaultRandomModelScale = 100.0
)

// newSource returns a generator owned by a single call. The seed comes from the
// runtime's global source, which is safe for concurrent use.
func newSource() rand.Source {
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}

// SynthesizeNoise returns base with sky background, shot noise and read noise added,
// in detected electrons. Every call draws fresh random samples.
func SynthesizeNoise(base Mat, p *NoiseParams) (Mat, error) {
	return SynthesizeNoiseWithSource(base, p, newSource())
}

// SynthesizeNoiseWithSource is SynthesizeNoise drawing from src. The source must not be
// shared with concurrent callers.
//
// Per pixel:
//
//	sky     ~ N(SkyValue, SkySigma)
//	flux    = base + N(0, FluxSigma)
//	withSky = max(flux + sky, 0)
//	out     = max(flux*t + sqrt(withSky*t + ReadNoise^2), 0)
//
// The square-root term is a magnitude, not a draw; randomness enters through sky and flux.
func SynthesizeNoiseWithSource(base Mat, p *NoiseParams, src rand.Source) (Mat, error) {
	if base.Empty() {
		return Mat{}, ErrEmptyImage
	}
	if p == nil {
		p = NewNoiseParams()
	}
	if err := validateNoiseParams(p); err != nil {
		return Mat{}, err
	}
	if src == nil {
		src = newSource()
	}

	sky := distuv.Normal{Mu: p.SkyValue, Sigma: p.SkySigma, Src: src}
	perturb := distuv.Normal{Mu: 0, Sigma: p.FluxSigma, Src: src}
	t := p.ExposureTime
	readVar := p.ReadNoise * p.ReadNoise

	model := base.Clone()
	defer model.Close()
	n := model.Rows() * model.Cols()
	in := model.DataFloat32()[:n]

	out := NewMatWithSize(model.Rows(), model.Cols())
	dst := out.DataFloat32()[:n]

	for i, v := range in {
		skyValue := sky.Rand()
		flux := float64(v) + perturb.Rand()

		withSky := flux + skyValue
		if withSky < 0 {
			withSky = 0
		}
		poisson := math.Sqrt(withSky*t + readVar)

		value := flux*t + poisson
		if value < 0 {
			value = 0
		}
		dst[i] = float32(value)
	}

	return out, checkFinite("synthesize noise", dst)
}

func validateNoiseParams(p *NoiseParams) error {
	if !(p.ExposureTime > 0) || math.IsInf(p.ExposureTime, 0) {
		return fmt.Errorf("%w: %g", ErrNonPositiveExposure, p.ExposureTime)
	}
	named := []struct {
		name  string
		value float64
	}{
		{"sky value", p.SkyValue},
		{"read noise", p.ReadNoise},
		{"sky sigma", p.SkySigma},
		{"flux sigma", p.FluxSigma},
	}
	for _, v := range named {
		if v.value < 0 || math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return fmt.Errorf("%w: %s = %g", ErrInvalidNoiseParam, v.name, v.value)
		}
	}
	return nil
}

// NewRandomModel returns a rows x cols base model of uniform values in [0, scale).
// A nil src uses a fresh per-call source.
func NewRandomModel(rows, cols int, scale float64, src rand.Source) Mat {
	if src == nil {
		src = newSource()
	}
	u := distuv.Uniform{Min: 0, Max: scale, Src: src}
	m := NewMatWithSize(rows, cols)
	data := m.DataFloat32()
	for i := range data[:rows*cols] {
		data[i] = float32(u.Rand())
	}
	return m
}
