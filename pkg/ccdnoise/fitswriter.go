package ccdnoise

import (
	"fmt"
	"io"
	"os"

	"github.com/astrogo/fitsio"
)

// FitsCard is an extra header keyword written with an image.
type FitsCard struct {
	Name    string
	Value   interface{}
	Comment string
}

// NoiseCards describes a simulated readout in FITS header keywords.
func NoiseCards(p *NoiseParams) []FitsCard {
	return []FitsCard{
		{Name: "EXPTIME", Value: p.ExposureTime, Comment: "exposure time [s]"},
		{Name: "SKYVAL", Value: p.SkyValue, Comment: "mean sky background [e-/pix]"},
		{Name: "RDNOISE", Value: p.ReadNoise, Comment: "read noise [e-/pix]"},
		{Name: "SKYSIG", Value: p.SkySigma, Comment: "sky background sigma [e-/pix]"},
		{Name: "FLUXSIG", Value: p.FluxSigma, Comment: "flux perturbation sigma"},
		{Name: "BUNIT", Value: "electron", Comment: "pixel unit"},
	}
}

// WriteFits writes m as a single BITPIX -32 primary image.
func WriteFits(w io.Writer, m Mat, cards ...FitsCard) error {
	if m.Empty() {
		return ErrEmptyImage
	}
	c := m.Clone()
	defer c.Close()
	pixels := make([]float32, c.Rows()*c.Cols())
	copy(pixels, c.DataFloat32())

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("creating FITS stream: %w", err)
	}
	defer f.Close()

	img := fitsio.NewImage(-32, []int{c.Cols(), c.Rows()})
	defer img.Close()

	if len(cards) > 0 {
		hdrCards := make([]fitsio.Card, len(cards))
		for i, card := range cards {
			hdrCards[i] = fitsio.Card{Name: card.Name, Value: card.Value, Comment: card.Comment}
		}
		if err := img.Header().Append(hdrCards...); err != nil {
			return fmt.Errorf("appending FITS header cards: %w", err)
		}
	}

	if err := img.Write(pixels); err != nil {
		return fmt.Errorf("writing FITS pixel data: %w", err)
	}
	if err := f.Write(img); err != nil {
		return fmt.Errorf("writing FITS HDU: %w", err)
	}
	return nil
}

// WriteFitsFile writes m to path, replacing any existing file.
func WriteFitsFile(path string, m Mat, cards ...FitsCard) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create FITS file: %w", err)
	}
	if err := WriteFits(out, m, cards...); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
