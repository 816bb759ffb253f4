// Package matting turns a soft segmentation mask into a cutout with
// fractional alpha. Pixels the mask is confident about keep a hard alpha,
// the band in between gets a smoothed estimate.
package matting

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Trimap values.
const (
	Background uint8 = 0
	Unknown    uint8 = 128
	Foreground uint8 = 255
)

var (
	ErrEmptyMask    = errors.New("mask is empty")
	ErrSizeMismatch = errors.New("mask and image dimensions do not match")
)

// Options controls how a mask is converted to alpha.
type Options struct {
	AlphaMatting        bool
	ForegroundThreshold int
	BackgroundThreshold int
	ErodeSize           int
}

// Trimap classifies every mask pixel as foreground (mask > fgThreshold),
// background (mask < bgThreshold) or unknown. Both regions are eroded by an
// erode x erode square first, or by a 3x3 cross when erode is not positive.
// Pixels outside the image count as background: the foreground shrinks away
// from the image border while the background does not. Where the eroded
// regions overlap, background wins.
func Trimap(mask *image.Gray, fgThreshold, bgThreshold, erode int) *image.Gray {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	isFG := make([]bool, w*h)
	isBG := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x, v := range row {
			isFG[y*w+x] = int(v) > fgThreshold
			isBG[y*w+x] = int(v) < bgThreshold
		}
	}

	if erode > 0 {
		isFG = erodeSquare(isFG, w, h, erode, false)
		isBG = erodeSquare(isBG, w, h, erode, true)
	} else {
		isFG = erodeCross(isFG, w, h, false)
		isBG = erodeCross(isBG, w, h, true)
	}

	trimap := image.NewGray(image.Rect(0, 0, w, h))
	for i := range trimap.Pix {
		switch {
		case isBG[i]:
			trimap.Pix[i] = Background
		case isFG[i]:
			trimap.Pix[i] = Foreground
		default:
			trimap.Pix[i] = Unknown
		}
	}
	return trimap
}

// erodeSquare applies binary erosion with a size x size structuring element
// centred at size/2. The square is separable so rows and columns are
// eroded independently. border is the value assumed outside the image.
func erodeSquare(src []bool, w, h, size int, border bool) []bool {
	lo := -(size / 2)
	hi := size - 1 + lo

	rows := make([]bool, len(src))
	for y := 0; y < h; y++ {
		erodeLine(src[y*w:(y+1)*w], rows[y*w:(y+1)*w], lo, hi, border)
	}

	out := make([]bool, len(src))
	col := make([]bool, h)
	colOut := make([]bool, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = rows[y*w+x]
		}
		erodeLine(col, colOut, lo, hi, border)
		for y := 0; y < h; y++ {
			out[y*w+x] = colOut[y]
		}
	}
	return out
}

// erodeLine sets dst[i] when every src[i+lo..i+hi] is set. Indices outside
// src read as border.
func erodeLine(src, dst []bool, lo, hi int, border bool) {
	n := len(src)
	prefix := make([]int, n+1)
	for i, v := range src {
		prefix[i+1] = prefix[i]
		if v {
			prefix[i+1]++
		}
	}
	for i := 0; i < n; i++ {
		a, b := i+lo, i+hi
		if (a < 0 || b >= n) && !border {
			dst[i] = false
			continue
		}
		a, b = max(a, 0), min(b, n-1)
		dst[i] = prefix[b+1]-prefix[a] == b-a+1
	}
}

// erodeCross erodes with the 3x3 cross (a pixel and its four neighbours).
func erodeCross(src []bool, w, h int, border bool) []bool {
	at := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return border
		}
		return src[y*w+x]
	}
	out := make([]bool, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = src[y*w+x] && at(x-1, y) && at(x+1, y) && at(x, y-1) && at(x, y+1)
		}
	}
	return out
}

// Cutout applies mask to img and returns a new image with img's colours and
// the computed alpha. img and mask must have the same dimensions.
func Cutout(img *image.NRGBA, mask *image.Gray, opts Options) (*image.NRGBA, error) {
	if mask == nil || mask.Bounds().Empty() {
		return nil, ErrEmptyMask
	}
	ib, mb := img.Bounds(), mask.Bounds()
	if ib.Dx() != mb.Dx() || ib.Dy() != mb.Dy() {
		return nil, fmt.Errorf("%w: image %dx%d, mask %dx%d",
			ErrSizeMismatch, ib.Dx(), ib.Dy(), mb.Dx(), mb.Dy())
	}

	alpha := mask
	if opts.AlphaMatting {
		alpha = estimateAlpha(mask, opts)
	}
	return applyAlpha(img, alpha), nil
}

// estimateAlpha keeps the trimap's hard decisions and fills the unknown
// band with a Gaussian-smoothed copy of the mask.
func estimateAlpha(mask *image.Gray, opts Options) *image.Gray {
	trimap := Trimap(mask, opts.ForegroundThreshold, opts.BackgroundThreshold, opts.ErodeSize)

	sigma := float64(opts.ErodeSize)
	if sigma < 1 {
		sigma = 1
	}
	smooth := imaging.Blur(mask, sigma)

	w, h := trimap.Bounds().Dx(), trimap.Bounds().Dy()
	alpha := image.NewGray(trimap.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*trimap.Stride + x
			switch t := trimap.Pix[i]; t {
			case Unknown:
				alpha.Pix[y*alpha.Stride+x] = smooth.Pix[y*smooth.Stride+x*4]
			default:
				alpha.Pix[y*alpha.Stride+x] = t
			}
		}
	}
	return alpha
}

func applyAlpha(img *image.NRGBA, alpha *image.Gray) *image.NRGBA {
	src := ToOrigin(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := y*src.Stride + x*4
			a := uint32(alpha.Pix[y*alpha.Stride+x])
			copy(out.Pix[si:si+3], src.Pix[si:si+3])
			out.Pix[si+3] = uint8((a*uint32(src.Pix[si+3]) + 127) / 255)
		}
	}
	return out
}

// ToOrigin returns img with its bounds starting at (0, 0).
func ToOrigin(img *image.NRGBA) *image.NRGBA {
	if img.Rect.Min == (image.Point{}) {
		return img
	}
	return imaging.Clone(img)
}

// MaskFromAlpha extracts the alpha channel of img as a grayscale mask.
func MaskFromAlpha(img *image.NRGBA) *image.Gray {
	src := ToOrigin(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask.Pix[y*mask.Stride+x] = src.Pix[y*src.Stride+x*4+3]
		}
	}
	return mask
}
