package ccdnoise

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderOptions controls false-color rendering of a frame.
type RenderOptions struct {
	// Display window; values outside are saturated.
	VMin float64
	VMax float64
	// Colormap is "hot", "afmhot" or "gray".
	Colormap string
	// Width scales the plot area to this many pixels; 0 keeps one pixel per element.
	Width    int
	Title    string
	Colorbar bool
}

// DefaultRenderOptions returns the fixed 0-10 e- display window used by the simulator.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		VMin:     0,
		VMax:     10,
		Colormap: "hot",
		Colorbar: true,
	}
}

// Colormap maps t in [0, 1] to a color.
type Colormap func(t float64) color.RGBA

var colormaps = map[string]Colormap{
	"hot":    hotColor,
	"afmhot": afmhotColor,
	"gray":   grayColor,
}

// LookupColormap returns the named colormap.
func LookupColormap(name string) (Colormap, error) {
	if cm, ok := colormaps[strings.ToLower(name)]; ok {
		return cm, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownColormap, name)
}

func unit(v float64) uint8 {
	return uint8(math.Round(255 * math.Max(0, math.Min(1, v))))
}

// hotColor is black -> red -> yellow -> white.
func hotColor(t float64) color.RGBA {
	return color.RGBA{unit(t * 8 / 3), unit(t*8/3 - 1), unit(4*t - 3), 255}
}

// afmhotColor is black -> red -> orange -> white with linear channel ramps.
func afmhotColor(t float64) color.RGBA {
	return color.RGBA{unit(2 * t), unit(2*t - 0.5), unit(2*t - 1), 255}
}

func grayColor(t float64) color.RGBA {
	v := unit(t)
	return color.RGBA{v, v, v, 255}
}

const (
	titleH      = 24
	colorbarW   = 16
	colorbarGap = 10
	labelW      = 48
	margin      = 8
)

// Render draws m in false color. Row 0 is drawn at the bottom. NaN pixels are black.
func Render(m Mat, opts RenderOptions) (*image.RGBA, error) {
	if m.Empty() {
		return nil, ErrEmptyImage
	}
	cm, err := LookupColormap(opts.Colormap)
	if err != nil {
		return nil, err
	}
	if !(opts.VMax > opts.VMin) {
		return nil, fmt.Errorf("display window [%g, %g] is empty", opts.VMin, opts.VMax)
	}

	plot := renderPlot(m, opts.VMin, opts.VMax, cm)
	plotW, plotH := plot.Bounds().Dx(), plot.Bounds().Dy()
	if opts.Width > 0 && opts.Width != plotW {
		plotH = int(math.Max(1, math.Round(float64(plotH)*float64(opts.Width)/float64(plotW))))
		plotW = opts.Width
		scaled := image.NewRGBA(image.Rect(0, 0, plotW, plotH))
		draw.ApproxBiLinear.Scale(scaled, scaled.Rect, plot, plot.Bounds(), draw.Src, nil)
		plot = scaled
	}

	top := margin
	if opts.Title != "" {
		top += titleH
	}
	totalW := margin + plotW + margin
	if opts.Colorbar {
		totalW += colorbarGap + colorbarW + labelW
	}
	totalH := top + plotH + margin

	img := image.NewRGBA(image.Rect(0, 0, totalW, totalH))
	draw.Draw(img, img.Rect, image.NewUniform(color.RGBA{255, 255, 255, 255}), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(margin, top, margin+plotW, top+plotH), plot, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	textColor := color.RGBA{0, 0, 0, 255}
	if opts.Title != "" {
		drawCenteredText(img, face, opts.Title, margin+plotW/2, margin+15, textColor)
	}

	if opts.Colorbar {
		x0 := margin + plotW + colorbarGap
		for y := 0; y < plotH; y++ {
			t := 1 - float64(y)/math.Max(1, float64(plotH-1))
			c := cm(t)
			for x := x0; x < x0+colorbarW; x++ {
				img.Set(x, top+y, c)
			}
		}
		labelX := x0 + colorbarW + 4
		drawText(img, face, formatTick(opts.VMax), labelX, top+10, textColor)
		drawText(img, face, formatTick((opts.VMin+opts.VMax)/2), labelX, top+plotH/2+4, textColor)
		drawText(img, face, formatTick(opts.VMin), labelX, top+plotH, textColor)
	}

	return img, nil
}

// renderPlot maps each element to one pixel, flipping rows so row 0 is at the bottom.
func renderPlot(m Mat, vmin, vmax float64, cm Colormap) *image.RGBA {
	c := m.Clone()
	defer c.Close()
	rows, cols := c.Rows(), c.Cols()
	data := c.DataFloat32()

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	span := vmax - vmin
	for r := 0; r < rows; r++ {
		y := rows - 1 - r
		for col := 0; col < cols; col++ {
			v := float64(data[r*cols+col])
			if math.IsNaN(v) {
				img.SetRGBA(col, y, color.RGBA{0, 0, 0, 255})
				continue
			}
			img.SetRGBA(col, y, cm((v-vmin)/span))
		}
	}
	return img
}

func formatTick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e6 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.3g", v)
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCenteredText draws a string centered at (cx, cy).
func drawCenteredText(img *image.RGBA, face font.Face, s string, cx, cy int, c color.RGBA) {
	advance := font.MeasureString(face, s)
	x := cx - advance.Round()/2
	drawText(img, face, s, x, cy, c)
}

// EncodeImage writes img as JPEG or PNG.
func EncodeImage(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case "png":
		return png.Encode(w, img)
	}
	return fmt.Errorf("unsupported image format %q", format)
}

// RenderBytes renders m and returns the encoded image.
func RenderBytes(m Mat, opts RenderOptions, format string) ([]byte, error) {
	img, err := Render(m, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := EncodeImage(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderFile renders m to outputPath; the extension selects JPEG or PNG.
func RenderFile(m Mat, opts RenderOptions, outputPath string) error {
	img, err := Render(m, opts)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if err := EncodeImage(f, img, strings.TrimPrefix(filepath.Ext(outputPath), ".")); err != nil {
		f.Close()
		os.Remove(outputPath)
		return err
	}
	return f.Close()
}
