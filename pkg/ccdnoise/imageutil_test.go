package ccdnoise

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

func TestKappaSigmaNoiseEstimateRejectsStars(t *testing.T) {
	const size = 100
	m := NewMatWithSize(size, size)
	defer m.Close()

	bg := distuv.Normal{Mu: 100, Sigma: 5, Src: rand.NewPCG(7, 8)}
	data := m.DataFloat32()
	for i := range data[:size*size] {
		data[i] = float32(bg.Rand())
	}
	for i := 0; i < 50; i++ {
		data[i*197%(size*size)] = 10000
	}

	res := KappaSigmaNoiseEstimate(m, &KappaSigmaParams{ClippingMultiplier: 3, AllowedError: 0.01, MaxIterations: 10})
	if res.BackgroundMean < 99 || res.BackgroundMean > 101 {
		t.Errorf("BackgroundMean = %v, want about 100", res.BackgroundMean)
	}
	if res.Sigma < 4.5 || res.Sigma > 5.3 {
		t.Errorf("Sigma = %v, want about 5", res.Sigma)
	}
	if res.NumIterations < 2 || res.NumIterations > 10 {
		t.Errorf("NumIterations = %d, want 2..10", res.NumIterations)
	}
	if res.Pixels > size*size-50 || res.Clamped != 0 {
		t.Errorf("Pixels, Clamped = %d, %d, want stars rejected and nothing clamped", res.Pixels, res.Clamped)
	}
}

func TestKappaSigmaNoiseEstimateFlatFrame(t *testing.T) {
	m := filledMat(10, 10, 42)
	defer m.Close()

	res := KappaSigmaNoiseEstimate(m, &KappaSigmaParams{ClippingMultiplier: 3, AllowedError: 0.001, MaxIterations: 5})
	if res.BackgroundMean != 42 || res.Sigma != 0 {
		t.Errorf("KappaSigmaNoiseEstimate() = %+v, want mean 42 sigma 0", res)
	}
	if res.NumIterations != 2 || res.Pixels != 100 {
		t.Errorf("NumIterations, Pixels = %d, %d, want 2, 100", res.NumIterations, res.Pixels)
	}
}

// A zero base with no sky and no read noise clamps roughly a quarter of the
// readout to zero; the background must not depend on those pixels.
func TestKappaSigmaNoiseEstimateClampedReadout(t *testing.T) {
	const size = 250
	base := filledMat(size, size, 0)
	defer base.Close()

	var results []KappaSigmaResult
	for seed := uint64(1); seed <= 3; seed++ {
		noisy, err := SynthesizeNoiseWithSource(base, noiseParams(1, 0, 0), rand.NewPCG(seed, 99))
		if err != nil {
			t.Fatalf("SynthesizeNoiseWithSource() error = %v", err)
		}
		res := KappaSigmaNoiseEstimate(noisy, nil)
		again := KappaSigmaNoiseEstimate(noisy, nil)
		noisy.Close()

		if res != again {
			t.Errorf("seed %d: estimate not repeatable: %+v vs %+v", seed, res, again)
		}
		if res.Clamped < size*size/5 || res.Clamped > size*size*2/5 {
			t.Errorf("seed %d: Clamped = %d, want about a quarter of %d", seed, res.Clamped, size*size)
		}
		if res.Pixels+res.Clamped > size*size {
			t.Errorf("seed %d: Pixels %d + Clamped %d exceed the frame", seed, res.Pixels, res.Clamped)
		}
		if res.BackgroundMean < 1.3 || res.BackgroundMean > 1.55 {
			t.Errorf("seed %d: BackgroundMean = %v, want about 1.43", seed, res.BackgroundMean)
		}
		if res.Sigma < 0.95 || res.Sigma > 1.15 {
			t.Errorf("seed %d: Sigma = %v, want about 1.05", seed, res.Sigma)
		}
		results = append(results, res)
	}

	for _, r := range results[1:] {
		if math.Abs(r.BackgroundMean-results[0].BackgroundMean) > 0.05 {
			t.Errorf("background varies across readouts: %v vs %v", r.BackgroundMean, results[0].BackgroundMean)
		}
	}
}

func TestKappaSigmaNoiseEstimateAllClamped(t *testing.T) {
	m := filledMat(8, 8, 0)
	defer m.Close()

	res := KappaSigmaNoiseEstimate(m, nil)
	if res.BackgroundMean != 0 || res.Sigma != 0 || res.Pixels != 0 {
		t.Errorf("KappaSigmaNoiseEstimate(zeros) = %+v, want zero background", res)
	}
	if res.Clamped != 64 || res.NumIterations != 1 {
		t.Errorf("Clamped, NumIterations = %d, %d, want 64, 1", res.Clamped, res.NumIterations)
	}

	plain := NewKappaSigmaParams()
	plain.ExcludeClamped = false
	if res := KappaSigmaNoiseEstimate(m, plain); res.BackgroundMean != 0 || res.Sigma != 0 {
		t.Errorf("KappaSigmaNoiseEstimate(zeros, plain) = %+v, want zero background", res)
	}

	if res := KappaSigmaNoiseEstimate(NewMat(), nil); res != (KappaSigmaResult{}) {
		t.Errorf("KappaSigmaNoiseEstimate(empty) = %+v, want zero result", res)
	}
}
