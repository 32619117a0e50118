package ccdnoise

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// FitsMetadata holds parsed FITS header key-value pairs.
type FitsMetadata struct {
	Headers map[string]string
}

// NewFitsMetadata creates an empty FitsMetadata.
func NewFitsMetadata() *FitsMetadata {
	return &FitsMetadata{Headers: make(map[string]string)}
}

func (m *FitsMetadata) GetString(key string) string {
	if v, ok := m.Headers[strings.ToUpper(key)]; ok {
		return v
	}
	return ""
}

func (m *FitsMetadata) GetDouble(key string) (float64, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (m *FitsMetadata) GetInt(key string) (int, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

func (m *FitsMetadata) ObjectName() string    { return m.GetString("OBJECT") }
func (m *FitsMetadata) CameraName() string    { return m.GetString("INSTRUME") }
func (m *FitsMetadata) Filter() string        { return m.GetString("FILTER") }
func (m *FitsMetadata) TelescopeName() string { return m.GetString("TELESCOP") }

func (m *FitsMetadata) ExposureTime() (float64, bool) {
	if v, ok := m.GetDouble("EXPTIME"); ok {
		return v, true
	}
	return m.GetDouble("EXPOSURE")
}

// FitsImageData holds the physical pixel values of one image HDU.
type FitsImageData struct {
	// Pixels are row-major with BZERO/BSCALE applied. Row 0 is the first row stored
	// in the file (FITS y = 1).
	Pixels    []float32
	Width     int
	Height    int
	BitPix    int
	HDU       int
	NonFinite int
	Metadata  *FitsMetadata
}

// ToMat builds a band Mat, replacing NaN and Inf pixels with fill.
func (d *FitsImageData) ToMat(fill float32) Mat {
	m := NewMatWithSize(d.Height, d.Width)
	dest := m.DataFloat32()
	for i, v := range d.Pixels {
		if !isFinite32(v) {
			v = fill
		}
		dest[i] = v
	}
	return m
}

// ReadFits reads the first 2D image in a FITS file.
func ReadFits(filePath string) (*FitsImageData, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return readFitsFromReader(bufio.NewReader(f), false)
}

// ReadFitsMetadataOnly reads headers up to the first 2D image without loading pixel data.
func ReadFitsMetadataOnly(filePath string) (*FitsImageData, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return readFitsFromReader(bufio.NewReader(f), true)
}

// ReadFitsFromBytes reads the first 2D image from an in-memory FITS file.
func ReadFitsFromBytes(data []byte) (*FitsImageData, error) {
	return readFitsFromReader(bytes.NewReader(data), false)
}

const (
	fitsBlockSize = 2880
	maxFitsAxes   = 999
)

// maxFitsImageBytes caps the pixel buffer allocated for one image HDU.
const maxFitsImageBytes = 1 << 31

type fitsHeader struct {
	bitpix   int
	naxis    []int
	pcount   int
	gcount   int
	bzero    float64
	bscale   float64
	xtension string
}

func (h fitsHeader) isImage(primary bool) bool {
	if len(h.naxis) < 2 || h.naxis[0] == 0 || h.naxis[1] == 0 {
		return false
	}
	return primary || h.xtension == "IMAGE"
}

// dataSize is the padded byte length of the HDU's data unit.
func (h fitsHeader) dataSize() int64 {
	if len(h.naxis) == 0 {
		return 0
	}
	n := int64(1)
	for _, a := range h.naxis {
		n *= int64(a)
	}
	bytesPerValue := int64(h.bitpix)
	if bytesPerValue < 0 {
		bytesPerValue = -bytesPerValue
	}
	size := bytesPerValue / 8 * int64(h.gcount) * (int64(h.pcount) + n)
	if rem := size % fitsBlockSize; rem != 0 {
		size += fitsBlockSize - rem
	}
	return size
}

func readFitsHeader(r io.Reader, metadata *FitsMetadata) (fitsHeader, error) {
	h := fitsHeader{bscale: 1, gcount: 1}
	naxis := 0
	axes := map[int]int{}
	headerDone := false

	recordBuf := make([]byte, 80)

	for !headerDone {
		for i := 0; i < 36; i++ {
			_, err := io.ReadFull(r, recordBuf)
			if err != nil {
				return h, fmt.Errorf("reading FITS header record: %w", err)
			}
			record := string(recordBuf)
			keyword := strings.TrimSpace(record[:8])

			if keyword == "END" {
				headerDone = true
				remaining := 35 - i
				if remaining > 0 {
					if _, err := io.CopyN(io.Discard, r, int64(remaining*80)); err != nil {
						return h, fmt.Errorf("skipping FITS header padding: %w", err)
					}
				}
				break
			}

			if len(record) > 10 && record[8] == '=' && record[9] == ' ' {
				rawValue := strings.TrimSpace(strings.SplitN(record[10:], "/", 2)[0])
				parsedValue := parseFitsValue(rawValue)

				if keyword != "" && parsedValue != "" {
					metadata.Headers[strings.ToUpper(keyword)] = parsedValue
				}

				switch {
				case keyword == "BITPIX":
					h.bitpix, _ = strconv.Atoi(rawValue)
				case keyword == "NAXIS":
					naxis, _ = strconv.Atoi(rawValue)
				case strings.HasPrefix(keyword, "NAXIS"):
					if idx, err := strconv.Atoi(keyword[5:]); err == nil {
						axes[idx], _ = strconv.Atoi(rawValue)
					}
				case keyword == "PCOUNT":
					h.pcount, _ = strconv.Atoi(rawValue)
				case keyword == "GCOUNT":
					h.gcount, _ = strconv.Atoi(rawValue)
				case keyword == "BZERO":
					h.bzero, _ = strconv.ParseFloat(rawValue, 64)
				case keyword == "BSCALE":
					h.bscale, _ = strconv.ParseFloat(rawValue, 64)
				case keyword == "XTENSION":
					h.xtension = strings.ToUpper(parsedValue)
				}
			}
		}
	}

	if naxis < 0 || naxis > maxFitsAxes {
		return h, fmt.Errorf("%w: NAXIS = %d", ErrInvalidFits, naxis)
	}
	h.naxis = make([]int, naxis)
	for i := range h.naxis {
		h.naxis[i] = axes[i+1]
		if h.naxis[i] < 0 {
			return h, fmt.Errorf("%w: NAXIS%d = %d", ErrInvalidFits, i+1, h.naxis[i])
		}
	}
	return h, nil
}

func readFitsFromReader(r io.Reader, skipPixelData bool) (*FitsImageData, error) {
	// Keywords from the primary header (telescope, filter) stay visible when the
	// image lives in an extension; the extension's own keywords take precedence.
	metadata := NewFitsMetadata()

	var h fitsHeader
	hdu := 0
	for ; ; hdu++ {
		var err error
		h, err = readFitsHeader(r, metadata)
		if err != nil {
			if hdu > 0 && errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: no 2D image in %d HDUs", ErrInvalidFits, hdu)
			}
			return nil, err
		}
		if h.isImage(hdu == 0) {
			break
		}
		if _, err := io.CopyN(io.Discard, r, h.dataSize()); err != nil {
			return nil, fmt.Errorf("skipping HDU %d data: %w", hdu, err)
		}
	}

	width, height := h.naxis[0], h.naxis[1]
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrInvalidFits, width, height)
	}
	result := &FitsImageData{
		Width:    width,
		Height:   height,
		BitPix:   h.bitpix,
		HDU:      hdu,
		Metadata: metadata,
	}
	if skipPixelData {
		return result, nil
	}

	numPixels := width * height
	bytesPerPixel := h.bitpix / 8
	if bytesPerPixel < 0 {
		bytesPerPixel = -bytesPerPixel
	}
	switch h.bitpix {
	case 8, 16, 32, -32, -64:
	default:
		return nil, fmt.Errorf("%w: unsupported BITPIX %d", ErrInvalidFits, h.bitpix)
	}
	if int64(width)*int64(height)*int64(bytesPerPixel) > maxFitsImageBytes {
		return nil, fmt.Errorf("%w: %dx%d image at BITPIX %d exceeds %d bytes",
			ErrInvalidFits, width, height, h.bitpix, int64(maxFitsImageBytes))
	}

	rawBytes := make([]byte, numPixels*bytesPerPixel)
	if _, err := io.ReadFull(r, rawBytes); err != nil {
		return nil, fmt.Errorf("reading BITPIX %d pixel data: %w", h.bitpix, err)
	}

	pixels := make([]float32, numPixels)
	for i := 0; i < numPixels; i++ {
		var raw float64
		switch h.bitpix {
		case 8:
			raw = float64(rawBytes[i])
		case 16:
			raw = float64(int16(binary.BigEndian.Uint16(rawBytes[i*2:])))
		case 32:
			raw = float64(int32(binary.BigEndian.Uint32(rawBytes[i*4:])))
		case -32:
			raw = float64(math.Float32frombits(binary.BigEndian.Uint32(rawBytes[i*4:])))
		case -64:
			raw = math.Float64frombits(binary.BigEndian.Uint64(rawBytes[i*8:]))
		}
		pixels[i] = float32(raw*h.bscale + h.bzero)
	}

	result.Pixels = pixels
	result.NonFinite = countNonFinite(pixels)
	return result, nil
}

func parseFitsValue(rawValue string) string {
	if rawValue == "" {
		return ""
	}
	if rawValue == "T" {
		return "True"
	}
	if rawValue == "F" {
		return "False"
	}
	if strings.HasPrefix(rawValue, "'") {
		endQuote := strings.LastIndex(rawValue, "'")
		if endQuote > 0 {
			return strings.TrimRight(rawValue[1:endQuote], " ")
		}
		return strings.TrimLeft(strings.TrimRight(rawValue, " "), "'")
	}
	return rawValue
}
