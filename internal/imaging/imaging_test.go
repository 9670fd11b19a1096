package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func testJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, solid(w, h, color.RGBA{255, 0, 0, 255}), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func testPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, solid(w, h, color.RGBA{0, 0, 255, 255}))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestProcessFormats(t *testing.T) {
	p := NewProcessor()
	for name, data := range map[string][]byte{"jpeg": testJPEG(100, 80), "png": testPNG(100, 80)} {
		t.Run(name, func(t *testing.T) {
			photo, err := p.Process(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if photo.MIME != "image/jpeg" {
				t.Errorf("expected image/jpeg, got %s", photo.MIME)
			}
			if photo.Width != 100 || photo.Height != 80 {
				t.Errorf("expected 100x80, got %dx%d", photo.Width, photo.Height)
			}
		})
	}
}

func TestProcessDownscaleKeepsAspect(t *testing.T) {
	photo, err := NewProcessor().Process(bytes.NewReader(testJPEG(2048, 1024)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	w, h := decodeSize(t, photo.Data)
	if w != DefaultMaxDimension || h != DefaultMaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", DefaultMaxDimension, DefaultMaxDimension/2, w, h)
	}
}

func TestProcessCustomLimit(t *testing.T) {
	p := &Processor{MaxDimension: 64, Quality: 70}
	photo, err := p.Process(bytes.NewReader(testPNG(100, 200)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if w, h := decodeSize(t, photo.Data); w != 32 || h != 64 {
		t.Errorf("expected 32x64, got %dx%d", w, h)
	}
}

func TestProcessSmallImageNotUpscaled(t *testing.T) {
	photo, err := NewProcessor().Process(bytes.NewReader(testJPEG(50, 50)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if w, h := decodeSize(t, photo.Data); w != 50 || h != 50 {
		t.Errorf("small image should not be resized: got %dx%d", w, h)
	}
}

func TestProcessRejects(t *testing.T) {
	tests := map[string][]byte{
		"text":      []byte("not an image"),
		"gif":       []byte("GIF89a..."),
		"truncated": testJPEG(20, 20)[:40],
		"too large": append(testJPEG(10, 10), make([]byte, MaxUploadBytes)...),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewProcessor().Process(bytes.NewReader(data))
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}
