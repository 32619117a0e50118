package ccdnoise

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	fieldEdgeFraction = 0.25
	minPixelsPerZone  = 9
)

// ZonePosition identifies a cell of the 3x3 field grid as the frame is displayed,
// with row 0 at the bottom.
type ZonePosition int

const (
	ZoneTopLeft ZonePosition = iota
	ZoneTop
	ZoneTopRight
	ZoneLeft
	ZoneCenter
	ZoneRight
	ZoneBottomLeft
	ZoneBottom
	ZoneBottomRight
)

var zoneLabels = map[ZonePosition]string{
	ZoneTopLeft:     "TL",
	ZoneTop:         "T",
	ZoneTopRight:    "TR",
	ZoneLeft:        "L",
	ZoneCenter:      "Center",
	ZoneRight:       "R",
	ZoneBottomLeft:  "BL",
	ZoneBottom:      "B",
	ZoneBottomRight: "BR",
}

// ZonePositions lists the grid in display order, top row first.
var ZonePositions = []ZonePosition{
	ZoneTopLeft, ZoneTop, ZoneTopRight,
	ZoneLeft, ZoneCenter, ZoneRight,
	ZoneBottomLeft, ZoneBottom, ZoneBottomRight,
}

func (z ZonePosition) String() string { return zoneLabels[z] }

// ZoneStats holds the statistics of one grid cell. Only finite pixels count.
type ZoneStats struct {
	Label  string
	Bounds image.Rectangle
	Pixels int
	Median float64
	Mean   float64
	StdDev float64
}

// FieldAnalysis compares the level of the nine grid cells of a frame.
type FieldAnalysis struct {
	Zones map[ZonePosition]ZoneStats
	// GradientPct is the spread between the brightest and faintest zone medians,
	// relative to the center median.
	GradientPct float64
	// OffAxisPct compares the average non-center median to the center.
	OffAxisPct float64
	Brightest  string
	Faintest   string
	// Reliable is false when a zone has too few pixels or the center level is not positive.
	Reliable bool
}

// AnalyzeField splits m into a 3x3 grid (the middle band spans half of each axis)
// and reports per-zone levels and the large-scale gradient across the field.
func AnalyzeField(m Mat) (*FieldAnalysis, error) {
	if m.Empty() {
		return nil, ErrEmptyImage
	}
	width, height := m.Cols(), m.Rows()
	c := m.Clone()
	defer c.Close()
	data := c.DataFloat32()

	xs := [4]int{0, int(float64(width) * fieldEdgeFraction), int(float64(width) * (1 - fieldEdgeFraction)), width}
	ys := [4]int{0, int(float64(height) * fieldEdgeFraction), int(float64(height) * (1 - fieldEdgeFraction)), height}

	result := &FieldAnalysis{Zones: make(map[ZonePosition]ZoneStats), Reliable: true}
	for gridRow := 0; gridRow < 3; gridRow++ {
		for gridCol := 0; gridCol < 3; gridCol++ {
			r := image.Rect(xs[gridCol], ys[gridRow], xs[gridCol+1], ys[gridRow+1])
			pos := classifyZone(gridCol, gridRow)
			zs := computeZoneStats(pos, r, data, width)
			if zs.Pixels < minPixelsPerZone {
				result.Reliable = false
			}
			result.Zones[pos] = zs
		}
	}

	center := result.Zones[ZoneCenter].Median
	if center <= 0 {
		result.Reliable = false
		return result, nil
	}

	var brightest, faintest ZonePosition
	hi, lo := math.Inf(-1), math.Inf(1)
	var offAxisSum float64
	offAxisCount := 0
	for _, pos := range ZonePositions {
		z := result.Zones[pos]
		if z.Pixels == 0 {
			continue
		}
		if z.Median > hi {
			hi, brightest = z.Median, pos
		}
		if z.Median < lo {
			lo, faintest = z.Median, pos
		}
		if pos != ZoneCenter {
			offAxisSum += z.Median
			offAxisCount++
		}
	}

	result.GradientPct = (hi - lo) / center * 100.0
	result.Brightest = zoneLabels[brightest]
	result.Faintest = zoneLabels[faintest]
	if offAxisCount > 0 {
		result.OffAxisPct = (offAxisSum/float64(offAxisCount) - center) / center * 100.0
	}
	return result, nil
}

// classifyZone maps a grid cell counted from the first row of the mat to its display
// position; the first rows are drawn at the bottom.
func classifyZone(col, row int) ZonePosition {
	grid := [3][3]ZonePosition{
		{ZoneBottomLeft, ZoneBottom, ZoneBottomRight},
		{ZoneLeft, ZoneCenter, ZoneRight},
		{ZoneTopLeft, ZoneTop, ZoneTopRight},
	}
	return grid[row][col]
}

func computeZoneStats(pos ZonePosition, r image.Rectangle, data []float32, stride int) ZoneStats {
	zs := ZoneStats{Label: zoneLabels[pos], Bounds: r}
	values := make([]float64, 0, r.Dx()*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if v := data[y*stride+x]; isFinite32(v) {
				values = append(values, float64(v))
			}
		}
	}
	zs.Pixels = len(values)
	if len(values) == 0 {
		return zs
	}
	zs.Median = medianFloat64(values)
	if len(values) > 1 {
		zs.Mean, zs.StdDev = stat.MeanStdDev(values, nil)
	} else {
		zs.Mean = values[0]
	}
	return zs
}

func medianFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}
