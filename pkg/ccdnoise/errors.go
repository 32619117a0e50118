package ccdnoise

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyImage          = errors.New("empty image")
	ErrNonPositiveExposure = errors.New("exposure time must be positive")
	ErrInvalidNoiseParam   = errors.New("invalid noise parameter")
	ErrUnsupportedRescale  = errors.New("unsupported rescale function")
	ErrNonFiniteOutput     = errors.New("non-finite output")
	ErrROIOutOfBounds      = errors.New("region of interest outside image")
	ErrUnknownPreset       = errors.New("unknown preset")
	ErrUnknownColormap     = errors.New("unknown colormap")
	ErrInvalidFits         = errors.New("invalid FITS")
)

// NonFiniteError reports NaN or Inf values in an operation's output. The operation
// still returns its result alongside this error.
type NonFiniteError struct {
	Stage string
	Count int
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("%s: %d non-finite values", e.Stage, e.Count)
}

func (e *NonFiniteError) Unwrap() error { return ErrNonFiniteOutput }

// checkFinite returns a *NonFiniteError when data holds NaN or Inf.
func checkFinite(stage string, data []float32) error {
	if n := countNonFinite(data); n > 0 {
		return &NonFiniteError{Stage: stage, Count: n}
	}
	return nil
}
