package image

import (
	"bytes"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/ruizrica/spriteforge/pkg/models"
)

const (
	// MaxUploadBytes caps reference uploads.
	MaxUploadBytes = 4 << 20
	// DefaultSpriteSize is the edge length of a normalized reference.
	DefaultSpriteSize = 128
	// MaxPixels caps the decoded canvas. Decoders allocate it from the
	// header alone, so the check runs before any pixel data is read.
	MaxPixels = 4096 * 4096
)

var (
	ErrTooLarge    = errors.New("image exceeds upload limit")
	ErrNotAnImage  = errors.New("data is not a decodable raster image")
	ErrInvalidSize = errors.New("target size must be positive")
)

// Inspect decodes only the header and reports the format and dimensions.
func Inspect(data []byte) (stdimage.Config, string, error) {
	if len(data) == 0 {
		return stdimage.Config{}, "", ErrNotAnImage
	}
	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return stdimage.Config{}, "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return cfg, format, nil
}

// Normalize turns an uploaded raster into a size x size transparent PNG,
// scaled to fit and centered.
func Normalize(data []byte, size int) (*models.Image, error) {
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	src, err := decode(data)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, ErrNotAnImage
	}

	scale := min(float64(size)/float64(w), float64(size)/float64(h))
	dw := max(1, int(float64(w)*scale+0.5))
	dh := max(1, int(float64(h)*scale+0.5))
	x0 := (size - dw) / 2
	y0 := (size - dh) / 2

	// NRGBA starts fully transparent.
	dst := stdimage.NewNRGBA(stdimage.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, stdimage.Rect(x0, y0, x0+dw, y0+dh), src, b, draw.Over, nil)

	return encodePNG(dst)
}

// ToPNG re-encodes any supported raster as PNG, keeping alpha.
func ToPNG(img *models.Image) (*models.Image, error) {
	if img.IsEmpty() {
		return nil, ErrNotAnImage
	}

	src, err := decode(img.Data)
	if err != nil {
		return nil, err
	}

	return encodePNG(src)
}

// decode checks the header dimensions against MaxPixels before decoding.
func decode(data []byte) (stdimage.Image, error) {
	cfg, _, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrNotAnImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := stdimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return src, nil
}

func encodePNG(img stdimage.Image) (*models.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return &models.Image{MIMEType: "image/png", Data: buf.Bytes()}, nil
}
