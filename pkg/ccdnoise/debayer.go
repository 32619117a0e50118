package ccdnoise

import (
	"fmt"
	"strings"
)

// BayerPattern names the colour filter layout of the top-left 2x2 cell, row-major.
type BayerPattern int

const (
	BayerRGGB BayerPattern = iota
	BayerBGGR
	BayerGRBG
	BayerGBRG
)

var bayerNames = map[BayerPattern]string{
	BayerRGGB: "RGGB",
	BayerBGGR: "BGGR",
	BayerGRBG: "GRBG",
	BayerGBRG: "GBRG",
}

func (p BayerPattern) String() string {
	if s, ok := bayerNames[p]; ok {
		return s
	}
	return fmt.Sprintf("BayerPattern(%d)", int(p))
}

// ParseBayerPattern accepts RGGB, BGGR, GRBG or GBRG in any case.
func ParseBayerPattern(name string) (BayerPattern, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for p, s := range bayerNames {
		if s == upper {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown Bayer pattern %q", name)
}

// redSite returns the column and row parity of the red filter.
func (p BayerPattern) redSite() (int, int) {
	switch p {
	case BayerBGGR:
		return 1, 1
	case BayerGRBG:
		return 1, 0
	case BayerGBRG:
		return 0, 1
	}
	return 0, 0
}

// SplitBayer interpolates a raw one-shot-colour frame into full-resolution blue, green
// and red bands using bilinear interpolation.
//
// Edge pixels mirror their neighbors so every lookup lands on a filter of the expected colour.
func SplitBayer(raw Mat, pattern BayerPattern) (blue, green, red Mat, err error) {
	if raw.Empty() {
		return Mat{}, Mat{}, Mat{}, ErrEmptyImage
	}
	if _, ok := bayerNames[pattern]; !ok {
		return Mat{}, Mat{}, Mat{}, fmt.Errorf("unknown Bayer pattern %v", pattern)
	}
	width, height := raw.Cols(), raw.Rows()
	if width < 2 || height < 2 {
		return Mat{}, Mat{}, Mat{}, fmt.Errorf("Bayer frame %dx%d smaller than one 2x2 cell", width, height)
	}

	src := raw.Clone()
	defer src.Close()
	data := src.DataFloat32()

	reflect := func(v, n int) int {
		if v < 0 {
			return -v
		}
		if v >= n {
			return 2*(n-1) - v
		}
		return v
	}
	px := func(x, y int) float64 {
		return float64(data[reflect(y, height)*width+reflect(x, width)])
	}

	rx, ry := pattern.redSite()
	blue = NewMatWithSize(height, width)
	green = NewMatWithSize(height, width)
	red = NewMatWithSize(height, width)
	bd, gd, rd := blue.DataFloat32(), green.DataFloat32(), red.DataFloat32()

	for y := 0; y < height; y++ {
		redRow := y%2 == ry
		for x := 0; x < width; x++ {
			redCol := x%2 == rx
			var r, g, b float64

			switch {
			case redRow && redCol:
				r = px(x, y)
				g = (px(x-1, y) + px(x+1, y) + px(x, y-1) + px(x, y+1)) / 4
				b = (px(x-1, y-1) + px(x+1, y-1) + px(x-1, y+1) + px(x+1, y+1)) / 4

			case redRow:
				// green on a red row
				r = (px(x-1, y) + px(x+1, y)) / 2
				g = px(x, y)
				b = (px(x, y-1) + px(x, y+1)) / 2

			case redCol:
				// green on a blue row
				r = (px(x, y-1) + px(x, y+1)) / 2
				g = px(x, y)
				b = (px(x-1, y) + px(x+1, y)) / 2

			default:
				r = (px(x-1, y-1) + px(x+1, y-1) + px(x-1, y+1) + px(x+1, y+1)) / 4
				g = (px(x-1, y) + px(x+1, y) + px(x, y-1) + px(x, y+1)) / 4
				b = px(x, y)
			}

			i := y*width + x
			bd[i], gd[i], rd[i] = float32(b), float32(g), float32(r)
		}
	}

	return blue, green, red, nil
}
