// Package testutil builds encoded test images.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Gradient returns a width x height image with a deterministic colour gradient.
func Gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// EncodedImage returns a gradient image encoded in format ("jpeg", "png", "gif", "tiff", "bmp", "webp").
func EncodedImage(t testing.TB, format string, width, height int) []byte {
	t.Helper()

	if format == "webp" {
		var buf bytes.Buffer
		if err := webp.Encode(&buf, Gradient(width, height), &webp.Options{Lossless: true}); err != nil {
			t.Fatalf("failed to encode webp test image: %v", err)
		}
		return buf.Bytes()
	}

	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		t.Fatalf("unsupported test format %q: %v", format, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Gradient(width, height), f); err != nil {
		t.Fatalf("failed to encode %s test image: %v", format, err)
	}
	return buf.Bytes()
}

// Dimensions decodes data and returns its size and format.
func Dimensions(t testing.TB, data []byte) (int, int, string) {
	t.Helper()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode image: %v", err)
	}
	return cfg.Width, cfg.Height, format
}
