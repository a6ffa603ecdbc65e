// Package transform decodes an original of any supported format, scales it
// down to fit a bounding box and re-encodes it in the format it came in.
package transform

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/zzenonn/imgateway/internal/errors"
)

const (
	DefaultJPEGQuality = 90
	DefaultWebPQuality = 90
	// DefaultMaxPixels bounds the decoded size of an original.
	DefaultMaxPixels = 100_000_000
)

// Result is a resized image and the format it was detected and re-encoded as.
type Result struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Engine resizes images with imaging. The zero value is not usable; call NewEngine.
type Engine struct {
	Filter      imaging.ResampleFilter
	JPEGQuality int
	WebPQuality float32
	MaxPixels   int
}

// NewEngine returns an engine with Lanczos resampling and default qualities
func NewEngine() *Engine {
	return &Engine{
		Filter:      imaging.Lanczos,
		JPEGQuality: DefaultJPEGQuality,
		WebPQuality: DefaultWebPQuality,
		MaxPixels:   DefaultMaxPixels,
	}
}

// Resize fits the image in data within width x height, keeping its aspect
// ratio. Images already inside the box are re-encoded at their own size.
func (e *Engine) Resize(data []byte, width, height int) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: %w", apperrors.ErrDecode, apperrors.ErrEmptyObject)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return Result{}, fmt.Errorf("%w: content is %s", apperrors.ErrDecode, mime.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperrors.ErrDecode, err)
	}
	if exceedsPixels(cfg.Width, cfg.Height, e.MaxPixels) {
		return Result{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", apperrors.ErrDecode, cfg.Width, cfg.Height, e.MaxPixels)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperrors.ErrDecode, err)
	}
	format = strings.ToLower(format)

	log.WithFields(log.Fields{
		"format": format,
		"source": fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"box":    fmt.Sprintf("%dx%d", width, height),
	}).Debug("Decoded original")

	dst := imaging.Fit(src, width, height, e.Filter)

	encoded, err := e.encode(dst, format)
	if err != nil {
		return Result{}, err
	}

	bounds := dst.Bounds()
	return Result{
		Data:   encoded,
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// exceedsPixels reports whether width x height is over limit, computed in
// int64 so forged header sizes cannot wrap. A zero limit disables the check.
func exceedsPixels(width, height, limit int) bool {
	if limit <= 0 {
		return false
	}
	return int64(width)*int64(height) > int64(limit)
}

func (e *Engine) encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer

	if format == "webp" {
		if err := webp.Encode(&buf, img, &webp.Options{Quality: e.WebPQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode webp: %w", err)
		}
		return buf.Bytes(), nil
	}

	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
	if err := imaging.Encode(&buf, img, f, imaging.JPEGQuality(e.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
