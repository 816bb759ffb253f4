// Package compose decodes uploaded images into NRGBA buffers, fits one image
// to another's dimensions and alpha-composites a cutout over a background.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrSizeMismatch is returned when two images that must share dimensions do not.
var ErrSizeMismatch = errors.New("image dimensions do not match")

// Decode decodes raw image bytes. Every registered format is tried first,
// then an explicit WebP decode for encoder variants the pure-Go decoder rejects.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errors.New("empty image data")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, format, nil
	}

	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, "webp", nil
	}

	return nil, "", fmt.Errorf("failed to decode image: %w", err)
}

// DecodeNRGBA decodes raw bytes and converts the result to NRGBA so every
// later stage works on straight (non-premultiplied) 8-bit RGBA.
func DecodeNRGBA(data []byte) (*image.NRGBA, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return ToNRGBA(img), nil
}

// ToNRGBA returns img as an NRGBA image anchored at the origin.
func ToNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode encodes img as png or lossless webp and returns the bytes with
// their content type.
func Encode(img image.Image, format string) ([]byte, string, error) {
	switch strings.ToLower(format) {
	case "", "png":
		data, err := EncodePNG(img)
		return data, "image/png", err
	case "webp":
		var buf bytes.Buffer
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
			return nil, "", fmt.Errorf("failed to encode webp: %w", err)
		}
		return buf.Bytes(), "image/webp", nil
	default:
		return nil, "", fmt.Errorf("unsupported output format: %s", format)
	}
}
