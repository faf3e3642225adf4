// Package imaging normalizes uploaded catalog photos: the format is sniffed
// from the bytes, large images are scaled down and everything is re-encoded
// as JPEG.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"

	// Registered decoders for accepted upload formats.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/erazemk/izposoja/internal/apperr"
)

const (
	// MaxDimension is the maximum width or height for stored images.
	MaxDimension = 1024

	// JPEGQuality is the compression quality for JPEG output.
	JPEGQuality = 85

	// DefaultMaxBytes caps the size of an upload.
	DefaultMaxBytes = 5 << 20

	// OutputMIME is the content type of every processed image.
	OutputMIME = "image/jpeg"
)

// AllowedMIME lists the accepted input types, as detected from the bytes.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Result is a processed image ready to store.
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process reads at most maxBytes of image data (DefaultMaxBytes when
// maxBytes <= 0), checks the real format, downscales anything larger than
// MaxDimension and re-encodes it as JPEG. Bad input is a validation error.
func Process(r io.Reader, maxBytes int64) (*Result, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperr.Validation("file too large, max %d MB", maxBytes>>20)
	}
	if len(data) == 0 {
		return nil, apperr.Validation("no file provided")
	}

	// Client headers are not trusted.
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, apperr.Validation("invalid file type %s, allowed: JPEG, PNG, WebP, GIF", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "cannot decode image")
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Result{
		Data:   buf.Bytes(),
		MIME:   OutputMIME,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// downscale fits the image within maxDim on both sides, keeping the aspect
// ratio. Smaller images are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
