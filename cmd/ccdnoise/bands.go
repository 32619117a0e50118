package main

import (
	"fmt"
	"strings"
	"sync"

	cn "ccdnoise/pkg/ccdnoise"
)

type bandInfo struct {
	Path      string
	Width     int
	Height    int
	Filter    string
	NonFinite int
}

func isFitsPath(path string) bool {
	lowerPath := strings.ToLower(path)
	return strings.HasSuffix(lowerPath, ".fits") || strings.HasSuffix(lowerPath, ".fit") || strings.HasSuffix(lowerPath, ".fts")
}

func loadBand(path string, nanFill float32) (cn.Mat, bandInfo, error) {
	info := bandInfo{Path: path}
	if !isFitsPath(path) {
		m, err := loadNonFitsImage(path)
		if err != nil {
			return cn.Mat{}, info, err
		}
		info.Width, info.Height = m.Cols(), m.Rows()
		return m, info, nil
	}

	fitsData, err := cn.ReadFits(path)
	if err != nil {
		return cn.Mat{}, info, fmt.Errorf("reading FITS %s: %w", path, err)
	}
	info.Width, info.Height = fitsData.Width, fitsData.Height
	info.Filter = fitsData.Metadata.Filter()
	info.NonFinite = fitsData.NonFinite
	return fitsData.ToMat(nanFill), info, nil
}

// loadBands reads the blue, green and red files in parallel. On error every band that
// did load is closed and the first failure in band order is returned.
func loadBands(log Logger, paths [3]string, nanFill float32) ([3]cn.Mat, [3]bandInfo, error) {
	var mats [3]cn.Mat
	var infos [3]bandInfo
	var errs [3]error

	var wg sync.WaitGroup
	wg.Add(len(paths))
	for i, path := range paths {
		go func(i int, path string) {
			defer wg.Done()
			log.Debugf("  Loading band %d: %v", i, path)
			mats[i], infos[i], errs[i] = loadBand(path, nanFill)
			if errs[i] == nil {
				log.Debugf("  Finished band %d: %dx%d", i, infos[i].Width, infos[i].Height)
			}
		}(i, path)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			for i := range mats {
				if errs[i] == nil {
					mats[i].Close()
				}
			}
			return [3]cn.Mat{}, infos, err
		}
	}
	return mats, infos, nil
}

// loadBayerBands reads one raw one-shot-colour frame and interpolates it into bands.
func loadBayerBands(log Logger, path, pattern string, nanFill float32) ([3]cn.Mat, [3]bandInfo, error) {
	var infos [3]bandInfo
	bp, err := cn.ParseBayerPattern(pattern)
	if err != nil {
		return [3]cn.Mat{}, infos, err
	}
	raw, info, err := loadBand(path, nanFill)
	if err != nil {
		return [3]cn.Mat{}, infos, err
	}
	defer raw.Close()

	log.Debugf("  Splitting %s frame %dx%d", bp, info.Width, info.Height)
	blue, green, red, err := cn.SplitBayer(raw, bp)
	if err != nil {
		return [3]cn.Mat{}, infos, fmt.Errorf("splitting %s: %w", path, err)
	}
	for i, filter := range [3]string{"B", "G", "R"} {
		infos[i] = info
		infos[i].Filter = bp.String() + ":" + filter
	}
	return [3]cn.Mat{blue, green, red}, infos, nil
}
