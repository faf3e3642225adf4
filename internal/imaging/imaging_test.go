package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/erazemk/izposoja/internal/apperr"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{200, 40, 40, 255})
		}
	}
	return img
}

func encodeJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func encodePNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, testImage(w, h))
	return buf.Bytes()
}

func encodeGIF(w, h int) []byte {
	var buf bytes.Buffer
	gif.Encode(&buf, testImage(w, h), nil)
	return buf.Bytes()
}

func TestProcessFormats(t *testing.T) {
	for name, data := range map[string][]byte{
		"jpeg": encodeJPEG(100, 80),
		"png":  encodePNG(100, 80),
		"gif":  encodeGIF(100, 80),
	} {
		t.Run(name, func(t *testing.T) {
			result, err := Process(bytes.NewReader(data), 0)
			if err != nil {
				t.Fatalf("Process %s: %v", name, err)
			}
			if result.MIME != OutputMIME {
				t.Errorf("expected %s, got %s", OutputMIME, result.MIME)
			}
			if result.Width != 100 || result.Height != 80 {
				t.Errorf("expected 100x80, got %dx%d", result.Width, result.Height)
			}
			if len(result.Data) == 0 {
				t.Error("expected non-empty data")
			}
		})
	}
}

func TestProcessDownscale(t *testing.T) {
	result, err := Process(bytes.NewReader(encodeJPEG(2048, 1024)), 0)
	if err != nil {
		t.Fatalf("Process large image: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != MaxDimension || b.Dy() != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, b.Dx(), b.Dy())
	}
}

func TestProcessSmallImageNotUpscaled(t *testing.T) {
	result, err := Process(bytes.NewReader(encodePNG(50, 50)), 0)
	if err != nil {
		t.Fatalf("Process small image: %v", err)
	}
	if result.Width != 50 || result.Height != 50 {
		t.Errorf("small image should not be resized: got %dx%d", result.Width, result.Height)
	}
}

func TestProcessRejects(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		maxBytes int64
	}{
		{"not an image", []byte("not an image"), 0},
		{"empty", nil, 0},
		{"truncated gif", []byte("GIF89a..."), 0},
		{"too large", encodePNG(64, 64), 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Process(bytes.NewReader(tt.data), tt.maxBytes)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
