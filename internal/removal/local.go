package removal

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/kozaktomas/backdrop/internal/matting"
)

// Colour distances (Euclidean, 0-441) between which the local mask ramps
// from background to subject.
const (
	localLowDistance  = 24.0
	localHighDistance = 96.0
)

// LocalMasker estimates a mask without a model. Images that already carry
// transparency use their alpha channel; everything else is compared against
// the median colour of the image border.
type LocalMasker struct {
	low, high float64
}

func NewLocalMasker() *LocalMasker {
	return &LocalMasker{low: localLowDistance, high: localHighDistance}
}

func (m *LocalMasker) Name() string {
	return "local"
}

func (m *LocalMasker) Mask(ctx context.Context, img *image.NRGBA) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hasTransparency(img) {
		return matting.MaskFromAlpha(img), nil
	}

	bg := borderMedian(img)
	smooth := imaging.Blur(img, 1.0)

	w, h := smooth.Bounds().Dx(), smooth.Bounds().Dy()
	mask := image.NewGray(image.Rect(0, 0, w, h))
	span := m.high - m.low
	for y := range h {
		for x := range w {
			i := y*smooth.Stride + x*4
			dr := float64(smooth.Pix[i]) - bg[0]
			dg := float64(smooth.Pix[i+1]) - bg[1]
			db := float64(smooth.Pix[i+2]) - bg[2]
			d := math.Sqrt(dr*dr + dg*dg + db*db)

			v := (d - m.low) / span * 255
			mask.Pix[y*mask.Stride+x] = uint8(math.Round(math.Max(0, math.Min(255, v))))
		}
	}
	return mask, nil
}

func hasTransparency(img *image.NRGBA) bool {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 3; i < len(row); i += 4 {
			if row[i] < 255 {
				return true
			}
		}
	}
	return false
}

// borderMedian returns the per-channel median of the outermost pixel ring.
func borderMedian(img *image.NRGBA) [3]float64 {
	var hist [3][256]int
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	count := 0
	add := func(x, y int) {
		i := y*img.Stride + x*4
		for c := range 3 {
			hist[c][img.Pix[i+c]]++
		}
		count++
	}
	for x := range w {
		add(x, 0)
		if h > 1 {
			add(x, h-1)
		}
	}
	for y := 1; y < h-1; y++ {
		add(0, y)
		if w > 1 {
			add(w-1, y)
		}
	}

	var out [3]float64
	for c := range 3 {
		seen := 0
		for v, n := range hist[c] {
			seen += n
			if seen*2 >= count {
				out[c] = float64(v)
				break
			}
		}
	}
	return out
}
