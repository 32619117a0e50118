package ccdnoise

import (
	"fmt"
	"image"
	"math"
)

// NewMatFromFloat32 creates a rows x cols Mat holding a copy of data (row-major).
func NewMatFromFloat32(rows, cols int, data []float32) (Mat, error) {
	if len(data) != rows*cols {
		return Mat{}, fmt.Errorf("data length %d does not match %dx%d", len(data), rows, cols)
	}
	m := NewMatWithSize(rows, cols)
	copy(m.DataFloat32(), data)
	return m, nil
}

// NewMatFromRows creates a Mat from a rectangular slice of rows.
func NewMatFromRows(rows [][]float32) (Mat, error) {
	if len(rows) == 0 {
		return NewMat(), nil
	}
	cols := len(rows[0])
	data := make([]float32, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Mat{}, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return NewMatFromFloat32(len(rows), cols, data)
}

// MatRows copies a Mat out into a slice of rows.
func MatRows(m Mat) [][]float32 {
	c := m.Clone()
	defer c.Close()
	data := c.DataFloat32()
	out := make([][]float32, m.Rows())
	for r := range out {
		out[r] = make([]float32, m.Cols())
		copy(out[r], data[r*m.Cols():(r+1)*m.Cols()])
	}
	return out
}

// cropMat returns a contiguous copy of the rectangle r of m.
func cropMat(m Mat, r image.Rectangle) Mat {
	view := m.Region(r)
	defer view.Close()
	return view.Clone()
}

func isFinite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func countNonFinite(data []float32) int {
	n := 0
	for _, v := range data {
		if !isFinite32(v) {
			n++
		}
	}
	return n
}

// finiteMinMax skips NaN and Inf. A slice with no finite values yields (0, 0).
func finiteMinMax(data []float32) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if !isFinite32(v) {
			continue
		}
		f := float64(v)
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}
