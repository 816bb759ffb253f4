package removal

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/kozaktomas/backdrop/internal/compose"
	"github.com/kozaktomas/backdrop/internal/matting"
)

// MaskProvider produces a soft segmentation mask (255 = subject) for an image.
// The mask may have any size; it is stretched to the image before use.
type MaskProvider interface {
	Name() string
	Mask(ctx context.Context, img *image.NRGBA) (*image.Gray, error)
}

// MaskRemover turns a MaskProvider into a Remover by running the alpha
// matting step locally.
type MaskRemover struct {
	provider MaskProvider
}

func NewMaskRemover(provider MaskProvider) *MaskRemover {
	return &MaskRemover{provider: provider}
}

func (r *MaskRemover) Name() string {
	return r.provider.Name()
}

func (r *MaskRemover) Remove(ctx context.Context, subject []byte, opts Options) ([]byte, error) {
	img, err := compose.DecodeNRGBA(subject)
	if err != nil {
		return nil, err
	}

	mask, err := r.provider.Mask(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%s mask failed: %w", r.provider.Name(), err)
	}
	if mask == nil || mask.Bounds().Empty() {
		return nil, matting.ErrEmptyMask
	}
	mask = fitMask(mask, img.Bounds().Dx(), img.Bounds().Dy())

	cutout, err := matting.Cutout(img, mask, opts)
	if err != nil {
		return nil, err
	}
	return compose.EncodePNG(cutout)
}

// fitMask stretches mask to w x h.
func fitMask(mask *image.Gray, w, h int) *image.Gray {
	b := mask.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return mask
	}
	return toGray(imaging.Resize(mask, w, h, imaging.Linear))
}

// toGray keeps the red channel of a grayscale image stored as NRGBA.
func toGray(img *image.NRGBA) *image.Gray {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			gray.Pix[y*gray.Stride+x] = img.Pix[y*img.Stride+x*4]
		}
	}
	return gray
}
