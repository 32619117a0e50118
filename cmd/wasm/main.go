//go:build js && wasm

package main

import (
	"errors"
	"syscall/js"

	cn "ccdnoise/pkg/ccdnoise"
)

// The composite is kept between calls so slider changes only re-run the noise model.
var (
	baseModel  cn.Mat
	basePreset cn.Preset
)

func main() {
	js.Global().Set("simulateNoise", js.FuncOf(simulateNoise))
	js.Global().Set("loadBands", js.FuncOf(loadBands))
	js.Global().Set("useRandomModel", js.FuncOf(useRandomModel))
	js.Global().Set("skyProfile", js.FuncOf(skyProfile))
	select {} // block forever
}

func optFloat(opts js.Value, key string, def float64) float64 {
	if opts.Type() != js.TypeObject {
		return def
	}
	v := opts.Get(key)
	if v.Type() == js.TypeNumber {
		return v.Float()
	}
	return def
}

func optString(opts js.Value, key string, def string) string {
	if opts.Type() != js.TypeObject {
		return def
	}
	v := opts.Get(key)
	if v.Type() == js.TypeString {
		return v.String()
	}
	return def
}

func useRandomModel(this js.Value, args []js.Value) interface{} {
	preset, _ := cn.LookupPreset("random")
	baseModel.Close()
	baseModel = cn.NewRandomModel(cn.DefaultRandomModelSize, cn.DefaultRandomModelSize, cn.DefaultRandomModelScale, nil)
	basePreset = preset
	return summaryResult(baseModel)
}

// loadBands(blueBytes, greenBytes, redBytes, {preset, func, nanFill})
func loadBands(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("usage: loadBands(blue, green, red, options)")
	}
	var opts js.Value
	if len(args) >= 4 {
		opts = args[3]
	}

	preset, err := cn.LookupPreset(optString(opts, "preset", "ngc3132"))
	if err != nil {
		return errorResult(err.Error())
	}
	params := preset.CompositeParams()
	if name := optString(opts, "func", ""); name != "" {
		fn, err := cn.ParseRescaleFunc(name)
		if err != nil {
			return errorResult(err.Error())
		}
		params.Func = fn
	}
	nanFill := float32(optFloat(opts, "nanFill", 0))

	var bands [3]cn.Mat
	defer func() {
		for i := range bands {
			bands[i].Close()
		}
	}()
	for i := 0; i < 3; i++ {
		jsBytes := args[i]
		fileBytes := make([]byte, jsBytes.Get("length").Int())
		js.CopyBytesToGo(fileBytes, jsBytes)

		fitsData, err := cn.ReadFitsFromBytes(fileBytes)
		if err != nil {
			return errorResult("FITS parse error: " + err.Error())
		}
		bands[i] = fitsData.ToMat(nanFill)
	}

	composite, err := cn.Compose(bands[0], bands[1], bands[2], params)
	if err != nil && !errors.Is(err, cn.ErrNonFiniteOutput) {
		return errorResult("Compose error: " + err.Error())
	}
	baseModel.Close()
	baseModel = composite
	basePreset = preset
	return summaryResult(baseModel)
}

// simulateNoise({exposure, sky, readNoise, vmin, vmax, cmap, width})
func simulateNoise(this js.Value, args []js.Value) interface{} {
	if baseModel.Empty() {
		useRandomModel(js.Undefined(), nil)
	}
	var opts js.Value
	if len(args) >= 1 {
		opts = args[0]
	}

	p := cn.NewNoiseParams()
	p.ExposureTime = optFloat(opts, "exposure", p.ExposureTime)
	p.SkyValue = optFloat(opts, "sky", p.SkyValue)
	p.ReadNoise = optFloat(opts, "readNoise", p.ReadNoise)

	noisy, err := cn.SynthesizeNoise(baseModel, p)
	if err != nil && !errors.Is(err, cn.ErrNonFiniteOutput) {
		return errorResult("Noise error: " + err.Error())
	}
	defer noisy.Close()

	render := cn.DefaultRenderOptions()
	render.VMin = optFloat(opts, "vmin", render.VMin)
	render.VMax = optFloat(opts, "vmax", render.VMax)
	render.Colormap = optString(opts, "cmap", basePreset.Colormap)
	render.Width = int(optFloat(opts, "width", 0))
	render.Title = basePreset.Title

	pngBytes, err := cn.RenderBytes(noisy, render, "png")
	if err != nil {
		return errorResult("Render error: " + err.Error())
	}

	baseStats := cn.Summarize(baseModel)
	s := cn.Summarize(noisy)
	snr := cn.ExpectedSNR(baseStats.Mean, p.SkyValue, p.ReadNoise, p.ExposureTime)
	regime := cn.ClassifyRegime(baseStats.Mean*p.ExposureTime, p.SkyValue*p.ExposureTime, p.ReadNoise)

	// Create Uint8Array and copy bytes
	uint8Array := js.Global().Get("Uint8Array").New(len(pngBytes))
	js.CopyBytesToJS(uint8Array, pngBytes)

	return js.ValueOf(map[string]interface{}{
		"width":  s.Cols,
		"height": s.Rows,
		"min":    s.Min,
		"max":    s.Max,
		"mean":   s.Mean,
		"stddev": s.StdDev,
		"snr":    snr,
		"regime": regime.String(),
		"image":  uint8Array,
	})
}

// skyProfile(mean) returns the sky background likelihood curve for the slider plot.
func skyProfile(this js.Value, args []js.Value) interface{} {
	mean := 0.0
	if len(args) >= 1 && args[0].Type() == js.TypeNumber {
		mean = args[0].Float()
	}
	points := cn.SkyProfile(mean, cn.DefaultSkyProfileSigma, 0, 20, 0.1)
	jsPoints := make([]interface{}, len(points))
	for i, pt := range points {
		jsPoints[i] = map[string]interface{}{"x": pt.X, "y": pt.Y}
	}
	return js.ValueOf(jsPoints)
}

func summaryResult(m cn.Mat) interface{} {
	s := cn.Summarize(m)
	return js.ValueOf(map[string]interface{}{
		"width":     s.Cols,
		"height":    s.Rows,
		"min":       s.Min,
		"max":       s.Max,
		"mean":      s.Mean,
		"nonFinite": s.NonFinite,
	})
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}
