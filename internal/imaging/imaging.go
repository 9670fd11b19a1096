// Package imaging normalises item photos before they are stored.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

// Defaults for stored photos.
const (
	DefaultMaxDimension = 1024
	DefaultQuality      = 85
	// MaxUploadBytes bounds the raw upload read by Process.
	MaxUploadBytes = 5 << 20
)

// Photo is an encoded image ready to store.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Processor downscales and re-encodes uploads as JPEG.
type Processor struct {
	MaxDimension int
	Quality      int
}

// NewProcessor returns a Processor with the default limits.
func NewProcessor() *Processor {
	return &Processor{MaxDimension: DefaultMaxDimension, Quality: DefaultQuality}
}

// Process reads an upload, checks its format from the leading bytes rather
// than any client header, and returns it as a bounded JPEG. Unsupported or
// oversized input fails with model.ErrValidation.
func (p *Processor) Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", model.ErrValidation, MaxUploadBytes)
	}

	switch detected := http.DetectContentType(data); detected {
	case "image/jpeg", "image/png":
	default:
		return nil, fmt.Errorf("%w: unsupported image format %s (only JPEG and PNG accepted)", model.ErrValidation, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", model.ErrValidation, err)
	}

	img = fit(img, p.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down with Catmull-Rom so neither side exceeds maxDim,
// keeping the aspect ratio. Smaller images are returned as is.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
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

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
