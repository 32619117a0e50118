package ccdnoise

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestColormapEnds(t *testing.T) {
	black := color.RGBA{0, 0, 0, 255}
	white := color.RGBA{255, 255, 255, 255}
	for _, name := range []string{"hot", "afmhot", "gray"} {
		cm, err := LookupColormap(name)
		if err != nil {
			t.Fatalf("LookupColormap(%q) error = %v", name, err)
		}
		if got := cm(0); got != black {
			t.Errorf("%s(0) = %v, want %v", name, got, black)
		}
		if got := cm(1); got != white {
			t.Errorf("%s(1) = %v, want %v", name, got, white)
		}
		if got := cm(-3); got != black {
			t.Errorf("%s(-3) = %v, want saturation at %v", name, got, black)
		}
	}
	if _, err := LookupColormap("viridis"); !errors.Is(err, ErrUnknownColormap) {
		t.Errorf("LookupColormap(viridis) error = %v, want ErrUnknownColormap", err)
	}
}

func plainOptions() RenderOptions {
	opts := DefaultRenderOptions()
	opts.Colorbar = false
	return opts
}

func TestRenderOrientation(t *testing.T) {
	m := mustMat(t, [][]float32{
		{0, 0, 0},
		{10, 10, float32(math.NaN())},
	})
	defer m.Close()

	img, err := Render(m, plainOptions())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got, want := img.Bounds(), image.Rect(0, 0, 3+2*margin, 2+2*margin); got != want {
		t.Fatalf("Render() bounds = %v, want %v", got, want)
	}

	// Row 0 is the bottom row of the plot.
	bottom := img.RGBAAt(margin, margin+1)
	top := img.RGBAAt(margin, margin)
	if bottom != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("bottom-left = %v, want black", bottom)
	}
	if top != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("top-left = %v, want white", top)
	}
	if nan := img.RGBAAt(margin+2, margin); nan != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("NaN pixel = %v, want black", nan)
	}
	// background
	if bg := img.RGBAAt(0, 0); bg != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("margin = %v, want white", bg)
	}
}

func TestRenderWidthAndDecorations(t *testing.T) {
	m := NewRandomModel(50, 100, 10, nil)
	defer m.Close()

	opts := DefaultRenderOptions()
	opts.Width = 200
	opts.Title = "NGC 3132"
	img, err := Render(m, opts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	wantW := margin + 200 + margin + colorbarGap + colorbarW + labelW
	wantH := margin + titleH + 100 + margin
	if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
		t.Errorf("Render() size = %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), wantW, wantH)
	}
}

func TestRenderErrors(t *testing.T) {
	m := filledMat(2, 2, 1)
	defer m.Close()

	if _, err := Render(NewMat(), DefaultRenderOptions()); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Render(empty) error = %v, want ErrEmptyImage", err)
	}
	opts := DefaultRenderOptions()
	opts.Colormap = "jet"
	if _, err := Render(m, opts); !errors.Is(err, ErrUnknownColormap) {
		t.Errorf("Render(jet) error = %v, want ErrUnknownColormap", err)
	}
	opts = DefaultRenderOptions()
	opts.VMin, opts.VMax = 5, 5
	if _, err := Render(m, opts); err == nil {
		t.Error("Render() with empty display window: error = nil")
	}
}

func TestRenderBytesPNG(t *testing.T) {
	m := rampMat(8, 8, 0.2)
	defer m.Close()

	data, err := RenderBytes(m, DefaultRenderOptions(), "png")
	if err != nil {
		t.Fatalf("RenderBytes() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if img.Bounds().Dy() != 8+2*margin {
		t.Errorf("decoded height = %d, want %d", img.Bounds().Dy(), 8+2*margin)
	}

	if _, err := RenderBytes(m, DefaultRenderOptions(), "tiff"); err == nil {
		t.Error("RenderBytes(tiff) error = nil")
	}
}

func TestRenderFile(t *testing.T) {
	m := rampMat(4, 6, 1)
	defer m.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "frame.jpg")
	if err := RenderFile(m, DefaultRenderOptions(), path); err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	img, _ := Render(m, DefaultRenderOptions())
	if cfg.Width != img.Bounds().Dx() || cfg.Height != img.Bounds().Dy() {
		t.Errorf("written image is %dx%d, want %dx%d", cfg.Width, cfg.Height, img.Bounds().Dx(), img.Bounds().Dy())
	}

	bad := filepath.Join(dir, "frame.tiff")
	if err := RenderFile(m, DefaultRenderOptions(), bad); err == nil {
		t.Error("RenderFile(.tiff) error = nil")
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Errorf("RenderFile(.tiff) left %s behind: %v", bad, err)
	}
	if err := RenderFile(m, DefaultRenderOptions(), filepath.Join(dir, "missing", "frame.png")); err == nil {
		t.Error("RenderFile(missing dir) error = nil")
	}
}

func TestFormatTick(t *testing.T) {
	tests := map[float64]string{
		0:      "0",
		10:     "10",
		2.5:    "2.5",
		0.0125: "0.0125",
	}
	for v, want := range tests {
		if got := formatTick(v); got != want {
			t.Errorf("formatTick(%v) = %q, want %q", v, got, want)
		}
	}
}
