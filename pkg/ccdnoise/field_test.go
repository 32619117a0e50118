package ccdnoise

import (
	"errors"
	"math"
	"testing"
)

func TestAnalyzeFieldFlat(t *testing.T) {
	m := filledMat(40, 40, 12)
	defer m.Close()

	fa, err := AnalyzeField(m)
	if err != nil {
		t.Fatalf("AnalyzeField() error = %v", err)
	}
	if !fa.Reliable {
		t.Error("Reliable = false, want true")
	}
	if fa.GradientPct != 0 || fa.OffAxisPct != 0 {
		t.Errorf("GradientPct, OffAxisPct = %v, %v, want 0, 0", fa.GradientPct, fa.OffAxisPct)
	}
	if len(fa.Zones) != 9 {
		t.Fatalf("len(Zones) = %d, want 9", len(fa.Zones))
	}
	total := 0
	for _, z := range fa.Zones {
		total += z.Pixels
	}
	if total != 1600 {
		t.Errorf("zones cover %d pixels, want 1600", total)
	}
	if c := fa.Zones[ZoneCenter]; c.Bounds.Dx() != 20 || c.Bounds.Dy() != 20 {
		t.Errorf("center zone = %v, want 20x20", c.Bounds)
	}
}

func TestAnalyzeFieldGradient(t *testing.T) {
	// Level rises with the row index, so the top of the displayed frame is brightest.
	m := NewMatWithSize(40, 40)
	defer m.Close()
	data := m.DataFloat32()
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			data[y*40+x] = float32(10 + y)
		}
	}

	fa, err := AnalyzeField(m)
	if err != nil {
		t.Fatalf("AnalyzeField() error = %v", err)
	}
	if fa.Brightest != "TL" && fa.Brightest != "T" && fa.Brightest != "TR" {
		t.Errorf("Brightest = %q, want a top zone", fa.Brightest)
	}
	if fa.Faintest != "BL" && fa.Faintest != "B" && fa.Faintest != "BR" {
		t.Errorf("Faintest = %q, want a bottom zone", fa.Faintest)
	}
	// bottom median 14.5, top 44.5, center 29.5
	if want := 30.0 / 29.5 * 100; math.Abs(fa.GradientPct-want) > 1e-9 {
		t.Errorf("GradientPct = %v, want %v", fa.GradientPct, want)
	}
}

func TestAnalyzeFieldDarkCenter(t *testing.T) {
	m := filledMat(12, 12, 0)
	defer m.Close()

	fa, err := AnalyzeField(m)
	if err != nil {
		t.Fatalf("AnalyzeField() error = %v", err)
	}
	if fa.Reliable {
		t.Error("Reliable = true for a zero-level center")
	}
	if _, err := AnalyzeField(NewMat()); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("AnalyzeField(empty) error = %v, want ErrEmptyImage", err)
	}
}
