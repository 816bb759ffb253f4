package compose

import (
	"errors"
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Resize scales img to exactly width x height. The aspect ratio is not
// preserved. filter is one of nearest, bilinear, catmullrom or lanczos.
func Resize(img image.Image, width, height int, filter string) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("cannot resize an empty image")
	}
	if b.Dx() == width && b.Dy() == height {
		return ToNRGBA(img), nil
	}

	if filter == "lanczos" {
		return ToNRGBA(resize.Resize(uint(width), uint(height), img, resize.Lanczos3)), nil
	}

	var scaler draw.Scaler
	switch filter {
	case "nearest":
		scaler = draw.NearestNeighbor
	case "bilinear":
		scaler = draw.BiLinear
	case "", "catmullrom":
		scaler = draw.CatmullRom
	default:
		return nil, fmt.Errorf("unknown resize filter %q", filter)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	scaler.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

// FitTo resizes img to the dimensions of ref.
func FitTo(img image.Image, ref image.Image, filter string) (*image.NRGBA, error) {
	rb := ref.Bounds()
	return Resize(img, rb.Dx(), rb.Dy(), filter)
}
