package compose

import (
	"fmt"
	"image"
)

// AlphaComposite places fg over bg with the Porter-Duff "over" operator on
// straight alpha. Both images must have the same dimensions; the result is a
// new image and neither input is modified.
func AlphaComposite(bg, fg *image.NRGBA) (*image.NRGBA, error) {
	bb, fb := bg.Bounds(), fg.Bounds()
	if bb.Dx() != fb.Dx() || bb.Dy() != fb.Dy() {
		return nil, fmt.Errorf("%w: background %dx%d, foreground %dx%d",
			ErrSizeMismatch, bb.Dx(), bb.Dy(), fb.Dx(), fb.Dy())
	}

	w, h := fb.Dx(), fb.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		bi := y * bg.Stride
		fi := y * fg.Stride
		oi := y * out.Stride
		for x := 0; x < w; x++ {
			blendOver(out.Pix[oi:oi+4], bg.Pix[bi:bi+4], fg.Pix[fi:fi+4])
			bi += 4
			fi += 4
			oi += 4
		}
	}
	return out, nil
}

// blendOver writes src over dst into out. All three are NRGBA pixels.
func blendOver(out, dst, src []uint8) {
	sa := uint32(src[3])
	switch sa {
	case 255:
		copy(out, src)
		return
	case 0:
		copy(out, dst)
		return
	}

	da := uint32(dst[3])
	// alphas scaled to 255*255
	srcW := sa * 255
	dstW := da * (255 - sa)
	outA := srcW + dstW
	if outA == 0 {
		out[0], out[1], out[2], out[3] = 0, 0, 0, 0
		return
	}
	for c := 0; c < 3; c++ {
		out[c] = uint8((uint32(src[c])*srcW + uint32(dst[c])*dstW + outA/2) / outA)
	}
	out[3] = uint8((outA + 127) / 255)
}
