package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	cn "ccdnoise/pkg/ccdnoise"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	preset    string
	rescale   string
	minBounds string
	maxBounds string
	roi       string
	sky       float64
	readNoise float64
	exposure  float64
	exposures string
	nanFill   float64
	bayer     string
	zones     bool
	vmin      float64
	vmax      float64
	cmap      string
	width     int
	out       string
	verbose   bool
}

func parseArgs(args []string, stderr io.Writer) (*options, []string, error) {
	defaults := cn.NewNoiseParams()
	render := cn.DefaultRenderOptions()

	o := &options{}
	fs := flag.NewFlagSet("ccdnoise", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: ccdnoise [flags] [blue green red | -bayer PATTERN raw]\n\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&o.preset, "preset", "random", "base model preset ("+strings.Join(cn.PresetNames(), ", ")+")")
	fs.StringVar(&o.rescale, "func", "", "band rescale function: sqrt, asinh, log10, loge (default from preset)")
	fs.StringVar(&o.minBounds, "min", "", "per-band clip minimum b,g,r (default from preset)")
	fs.StringVar(&o.maxBounds, "max", "", "per-band clip maximum b,g,r (default from preset)")
	fs.StringVar(&o.roi, "roi", "", "composite region of interest x0,y0,x1,y1 (default from preset)")
	fs.Float64Var(&o.sky, "sky", defaults.SkyValue, "mean sky value [e-/pix]")
	fs.Float64Var(&o.readNoise, "read-noise", defaults.ReadNoise, "CCD read noise [e-/pix]")
	fs.Float64Var(&o.exposure, "exposure", defaults.ExposureTime, "exposure time [s]")
	fs.StringVar(&o.exposures, "exposures", "", "comma-separated exposure times; simulates each in parallel")
	fs.Float64Var(&o.nanFill, "nan-fill", 0, "value substituted for NaN/Inf band pixels")
	fs.StringVar(&o.bayer, "bayer", "", "split a single one-shot-colour frame with this pattern (RGGB, BGGR, GRBG, GBRG)")
	fs.BoolVar(&o.zones, "zones", false, "report the 3x3 field gradient of each readout")
	fs.Float64Var(&o.vmin, "vmin", render.VMin, "display window minimum")
	fs.Float64Var(&o.vmax, "vmax", render.VMax, "display window maximum")
	fs.StringVar(&o.cmap, "cmap", "", "colormap: hot, afmhot, gray (default from preset)")
	fs.IntVar(&o.width, "width", 0, "rendered plot width in pixels (0 = native)")
	fs.StringVar(&o.out, "out", "", "output file (.fits, .jpg, .png)")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return o, fs.Args(), nil
}

func run(args []string, stdout io.Writer) error {
	o, bandPaths, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}
	log := newLogger(o.verbose)

	preset, err := cn.LookupPreset(o.preset)
	if err != nil {
		return err
	}

	exposures, err := exposureList(o)
	if err != nil {
		return err
	}

	base, err := buildBaseModel(log, o, preset, bandPaths, stdout)
	if err != nil {
		return err
	}
	defer base.Close()

	baseSummary := cn.Summarize(base)
	log.Debugf("Base model: %v", baseSummary)

	// Simulate every exposure concurrently; each call owns its generator.
	startTime := time.Now()
	results := make([]cn.Mat, len(exposures))
	errs := make([]error, len(exposures))
	var wg sync.WaitGroup
	for i, t := range exposures {
		wg.Add(1)
		go func(i int, t float64) {
			defer wg.Done()
			results[i], errs[i] = cn.SynthesizeNoise(base, noiseParams(o, t))
		}(i, t)
	}
	wg.Wait()
	defer func() {
		for i := range results {
			if errs[i] == nil || errors.Is(errs[i], cn.ErrNonFiniteOutput) {
				results[i].Close()
			}
		}
	}()
	log.Debugf("Noise synthesis: %.3fs", time.Since(startTime).Seconds())

	for i, t := range exposures {
		if errs[i] != nil && !errors.Is(errs[i], cn.ErrNonFiniteOutput) {
			return fmt.Errorf("simulating exposure %gs: %w", t, errs[i])
		}
		if errs[i] != nil {
			log.Errorf("exposure %gs: %v", t, errs[i])
		}
		p := noiseParams(o, t)
		printReport(stdout, p, baseSummary, results[i])
		if o.zones {
			if err := printFieldReport(stdout, results[i]); err != nil {
				return err
			}
		}

		if o.out != "" {
			path := outputPath(o.out, t, len(exposures) > 1)
			if err := writeOutput(path, results[i], p, o, preset); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "  Written:         %s\n", path)
		}
	}
	return nil
}

func noiseParams(o *options, exposure float64) *cn.NoiseParams {
	p := cn.NewNoiseParams()
	p.ExposureTime = exposure
	p.SkyValue = o.sky
	p.ReadNoise = o.readNoise
	return p
}

func exposureList(o *options) ([]float64, error) {
	if o.exposures == "" {
		return []float64{o.exposure}, nil
	}
	values, err := parseFloats(o.exposures, -1)
	if err != nil {
		return nil, fmt.Errorf("-exposures: %w", err)
	}
	return values, nil
}

func buildBaseModel(log Logger, o *options, preset cn.Preset, bandPaths []string, stdout io.Writer) (cn.Mat, error) {
	switch {
	case len(bandPaths) == 0 && preset.Synthetic():
		fmt.Fprintf(stdout, "Base model: %s (%dx%d)\n", preset.Title, cn.DefaultRandomModelSize, cn.DefaultRandomModelSize)
		return cn.NewRandomModel(cn.DefaultRandomModelSize, cn.DefaultRandomModelSize, cn.DefaultRandomModelScale, nil), nil
	case len(bandPaths) == 0:
		return cn.Mat{}, fmt.Errorf("preset %s needs three band files (blue green red); archive sources:\n  %s",
			preset.Name, strings.Join(preset.Sources[:], "\n  "))
	case o.bayer != "" && len(bandPaths) != 1:
		return cn.Mat{}, fmt.Errorf("-bayer takes one raw frame, got %d files", len(bandPaths))
	case o.bayer == "" && len(bandPaths) != 3:
		return cn.Mat{}, fmt.Errorf("expected three band files (blue green red), got %d", len(bandPaths))
	}

	params, err := compositeParams(o, preset)
	if err != nil {
		return cn.Mat{}, err
	}

	var mats [3]cn.Mat
	var infos [3]bandInfo
	if o.bayer != "" {
		mats, infos, err = loadBayerBands(log, bandPaths[0], o.bayer, float32(o.nanFill))
	} else {
		mats, infos, err = loadBands(log, [3]string{bandPaths[0], bandPaths[1], bandPaths[2]}, float32(o.nanFill))
	}
	if err != nil {
		return cn.Mat{}, err
	}
	defer func() {
		for i := range mats {
			mats[i].Close()
		}
	}()

	fmt.Fprintf(stdout, "Base model: %s\n", preset.Title)
	for i, info := range infos {
		fmt.Fprintf(stdout, "  %-5s %4d x %-4d %-10s %s\n", bandLabel(i), info.Width, info.Height, info.Filter, filepath.Base(info.Path))
		if info.NonFinite > 0 {
			log.Infof("%s band: %d non-finite pixels replaced with %g", bandLabel(i), info.NonFinite, o.nanFill)
		}
	}

	composite, err := cn.Compose(mats[0], mats[1], mats[2], params)
	if err != nil && !errors.Is(err, cn.ErrNonFiniteOutput) {
		return cn.Mat{}, fmt.Errorf("composing bands: %w", err)
	}
	if err != nil {
		log.Errorf("composite: %v", err)
	}
	fmt.Fprintf(stdout, "  Composite:       %d x %d (%s)\n", composite.Cols(), composite.Rows(), params.Func)
	return composite, nil
}

func bandLabel(i int) string {
	return [3]string{"blue", "green", "red"}[i]
}

// compositeParams applies explicit flags on top of the preset.
func compositeParams(o *options, preset cn.Preset) (*cn.CompositeParams, error) {
	p := preset.CompositeParams()
	if preset.Synthetic() {
		p = cn.NewCompositeParams()
	}

	if o.rescale != "" {
		fn, err := cn.ParseRescaleFunc(o.rescale)
		if err != nil {
			return nil, err
		}
		p.Func = fn
	}
	if o.minBounds != "" || o.maxBounds != "" {
		mins, err := parseTriple(o.minBounds, p, func(b *cn.Bounds) float64 { return b.Min })
		if err != nil {
			return nil, fmt.Errorf("-min: %w", err)
		}
		maxs, err := parseTriple(o.maxBounds, p, func(b *cn.Bounds) float64 { return b.Max })
		if err != nil {
			return nil, fmt.Errorf("-max: %w", err)
		}
		for i := range p.Bounds {
			p.Bounds[i] = &cn.Bounds{Min: mins[i], Max: maxs[i]}
		}
	}
	if o.roi != "" {
		roi, err := parseROI(o.roi)
		if err != nil {
			return nil, err
		}
		p.ROI = roi
	}
	return p, nil
}

// parseTriple reads "a,b,c"; an empty string keeps the current bound values.
func parseTriple(s string, p *cn.CompositeParams, current func(*cn.Bounds) float64) ([3]float64, error) {
	var out [3]float64
	if s == "" {
		for i, b := range p.Bounds {
			if b == nil {
				return out, errors.New("both -min and -max are needed when the preset has no bounds")
			}
			out[i] = current(b)
		}
		return out, nil
	}
	values, err := parseFloats(s, 3)
	if err != nil {
		return out, err
	}
	copy(out[:], values)
	return out, nil
}

func parseROI(s string) (*image.Rectangle, error) {
	values, err := parseFloats(s, 4)
	if err != nil {
		return nil, fmt.Errorf("-roi: %w", err)
	}
	r := image.Rect(int(values[0]), int(values[1]), int(values[2]), int(values[3]))
	return &r, nil
}

// parseFloats parses a comma-separated list; want < 0 accepts any non-zero length.
func parseFloats(s string, want int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if want >= 0 && len(parts) != want {
		return nil, fmt.Errorf("want %d comma-separated values, got %d", want, len(parts))
	}
	values := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		values[i] = v
	}
	return values, nil
}

func printReport(w io.Writer, p *cn.NoiseParams, base cn.ImageSummary, noisy cn.Mat) {
	s := cn.Summarize(noisy)
	noiseEst := cn.KappaSigmaNoiseEstimate(noisy, cn.NewKappaSigmaParams())
	snr := cn.ExpectedSNR(base.Mean, p.SkyValue, p.ReadNoise, p.ExposureTime)
	regime := cn.ClassifyRegime(base.Mean*p.ExposureTime, p.SkyValue*p.ExposureTime, p.ReadNoise)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "=== Simulated Readout (t=%gs) ===\n", p.ExposureTime)
	fmt.Fprintf(w, "  Sky value:       %.2f e-/pix\n", p.SkyValue)
	fmt.Fprintf(w, "  Read noise:      %.2f e-/pix\n", p.ReadNoise)
	fmt.Fprintf(w, "  Image size:      %d x %d\n", s.Cols, s.Rows)
	fmt.Fprintf(w, "  Range:           %.3f .. %.3f e-\n", s.Min, s.Max)
	fmt.Fprintf(w, "  Mean:            %.3f +/- %.3f e-\n", s.Mean, s.StdDev)
	fmt.Fprintf(w, "  Background:      %.3f (sigma %.3f, %d iterations)\n", noiseEst.BackgroundMean, noiseEst.Sigma, noiseEst.NumIterations)
	fmt.Fprintf(w, "  Clamped at 0:    %d pixels\n", noiseEst.Clamped)
	fmt.Fprintf(w, "  Expected S/N:    %.2f (%s)\n", snr, regime)
	fmt.Fprintln(w, "==============================")
}

func printFieldReport(w io.Writer, m cn.Mat) error {
	fa, err := cn.AnalyzeField(m)
	if err != nil {
		return fmt.Errorf("field analysis: %w", err)
	}
	fmt.Fprintln(w, "=== Field ===")
	for row := 0; row < 3; row++ {
		fmt.Fprint(w, " ")
		for _, pos := range cn.ZonePositions[row*3 : row*3+3] {
			z := fa.Zones[pos]
			fmt.Fprintf(w, " %-6s %9.3f +/- %-8.3f", z.Label, z.Median, z.StdDev)
		}
		fmt.Fprintln(w)
	}
	if fa.Reliable {
		fmt.Fprintf(w, "  Gradient:        %.1f%% (brightest %s, faintest %s)\n", fa.GradientPct, fa.Brightest, fa.Faintest)
		fmt.Fprintf(w, "  Off-axis:        %+.1f%%\n", fa.OffAxisPct)
	} else {
		fmt.Fprintln(w, "  Gradient:        n/a (frame too small or dark center)")
	}
	fmt.Fprintln(w, "==============================")
	return nil
}

func outputPath(path string, exposure float64, many bool) string {
	if !many {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_t%g%s", strings.TrimSuffix(path, ext), exposure, ext)
}

func writeOutput(path string, m cn.Mat, p *cn.NoiseParams, o *options, preset cn.Preset) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".fits" || ext == ".fit" || ext == ".fts" {
		return cn.WriteFitsFile(path, m, cn.NoiseCards(p)...)
	}

	opts := cn.DefaultRenderOptions()
	opts.VMin, opts.VMax = o.vmin, o.vmax
	opts.Colormap = preset.Colormap
	if o.cmap != "" {
		opts.Colormap = o.cmap
	}
	opts.Width = o.width
	opts.Title = fmt.Sprintf("%s  t=%gs", preset.Title, p.ExposureTime)
	return cn.RenderFile(m, opts, path)
}
