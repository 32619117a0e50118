package ccdnoise

import (
	"testing"
)

// mosaic fills a rows x cols frame with the given per-colour levels laid out in pattern.
func mosaic(rows, cols int, pattern BayerPattern, r, g, b float32) Mat {
	m := NewMatWithSize(rows, cols)
	data := m.DataFloat32()
	rx, ry := pattern.redSite()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := g
			switch {
			case x%2 == rx && y%2 == ry:
				v = r
			case x%2 != rx && y%2 != ry:
				v = b
			}
			data[y*cols+x] = v
		}
	}
	return m
}

func TestSplitBayerFlatColours(t *testing.T) {
	for _, pattern := range []BayerPattern{BayerRGGB, BayerBGGR, BayerGRBG, BayerGBRG} {
		t.Run(pattern.String(), func(t *testing.T) {
			raw := mosaic(6, 8, pattern, 10, 20, 30)
			defer raw.Close()

			blue, green, red, err := SplitBayer(raw, pattern)
			if err != nil {
				t.Fatalf("SplitBayer() error = %v", err)
			}
			defer blue.Close()
			defer green.Close()
			defer red.Close()

			for name, tc := range map[string]struct {
				m    Mat
				want float32
			}{"blue": {blue, 30}, "green": {green, 20}, "red": {red, 10}} {
				if tc.m.Rows() != 6 || tc.m.Cols() != 8 {
					t.Fatalf("%s shape = %dx%d, want 6x8", name, tc.m.Rows(), tc.m.Cols())
				}
				for i, v := range tc.m.DataFloat32()[:48] {
					if v != tc.want {
						t.Fatalf("%s[%d] = %v, want %v", name, i, v, tc.want)
					}
				}
			}
		})
	}
}

func TestSplitBayerFeedsCompose(t *testing.T) {
	raw := mosaic(10, 10, BayerRGGB, 4, 16, 36)
	defer raw.Close()

	blue, green, red, err := SplitBayer(raw, BayerRGGB)
	if err != nil {
		t.Fatalf("SplitBayer() error = %v", err)
	}
	defer blue.Close()
	defer green.Close()
	defer red.Close()

	bounds := &Bounds{Min: 0, Max: 100}
	out, err := Compose(blue, green, red, &CompositeParams{Func: RescaleSqrt, Bounds: [3]*Bounds{bounds, bounds, bounds}})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	defer out.Close()
	// (6 + 4 + 2) / 3
	if v := out.DataFloat32()[0]; v != 4 {
		t.Errorf("Compose() = %v, want 4", v)
	}
}

func TestSplitBayerErrors(t *testing.T) {
	if _, _, _, err := SplitBayer(NewMat(), BayerRGGB); err == nil {
		t.Error("SplitBayer(empty) error = nil")
	}
	tiny := filledMat(1, 5, 1)
	defer tiny.Close()
	if _, _, _, err := SplitBayer(tiny, BayerRGGB); err == nil {
		t.Error("SplitBayer(1x5) error = nil")
	}
	ok := filledMat(4, 4, 1)
	defer ok.Close()
	if _, _, _, err := SplitBayer(ok, BayerPattern(9)); err == nil {
		t.Error("SplitBayer(pattern 9) error = nil")
	}
}

func TestParseBayerPattern(t *testing.T) {
	for _, name := range []string{"rggb", "BGGR", " grbg ", "GbRg"} {
		if _, err := ParseBayerPattern(name); err != nil {
			t.Errorf("ParseBayerPattern(%q) error = %v", name, err)
		}
	}
	if p, _ := ParseBayerPattern("bggr"); p != BayerBGGR {
		t.Errorf("ParseBayerPattern(bggr) = %v, want BGGR", p)
	}
	if _, err := ParseBayerPattern("RGBW"); err == nil {
		t.Error("ParseBayerPattern(RGBW) error = nil")
	}
}
