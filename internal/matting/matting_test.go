package matting

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformMask(w, h int, v uint8) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

// halfMask is opaque on the left half and empty on the right half.
func halfMask(w, h int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			m.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return m
}

func createTestImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 10), uint8(y * 10), 77, 255})
		}
	}
	return img
}

func defaultOptions() Options {
	return Options{AlphaMatting: true, ForegroundThreshold: 100, BackgroundThreshold: 155, ErodeSize: 2}
}

func TestTrimap_ErodesBothRegions(t *testing.T) {
	trimap := Trimap(halfMask(10, 4), 100, 155, 2)

	assert.Equal(t, Foreground, trimap.GrayAt(2, 2).Y)
	assert.Equal(t, Background, trimap.GrayAt(7, 2).Y)
	// boundary column of the background region is eroded away
	assert.Equal(t, Unknown, trimap.GrayAt(5, 2).Y)
	// the foreground shrinks away from the image border
	assert.Equal(t, Unknown, trimap.GrayAt(0, 2).Y)
	assert.Equal(t, Unknown, trimap.GrayAt(2, 0).Y)
	// the background does not
	assert.Equal(t, Background, trimap.GrayAt(7, 0).Y)
	assert.Equal(t, Background, trimap.GrayAt(9, 3).Y)
}

func TestTrimap_BackgroundKeepsImageBorder(t *testing.T) {
	trimap := Trimap(uniformMask(6, 6, 80), 100, 155, 2)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			assert.Equal(t, Background, trimap.GrayAt(x, y).Y, "pixel (%d,%d)", x, y)
		}
	}

	out, err := Cutout(createTestImage(6, 6), uniformMask(6, 6, 80), defaultOptions())
	require.NoError(t, err)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			assert.Equal(t, uint8(0), out.NRGBAAt(x, y).A, "pixel (%d,%d)", x, y)
		}
	}
}

func TestTrimap_ZeroErodeUsesCross(t *testing.T) {
	trimap := Trimap(halfMask(10, 4), 100, 155, 0)

	assert.Equal(t, Foreground, trimap.GrayAt(2, 2).Y)
	assert.Equal(t, Background, trimap.GrayAt(7, 2).Y)
	// neighbours across the mask edge
	assert.Equal(t, Unknown, trimap.GrayAt(4, 2).Y)
	assert.Equal(t, Unknown, trimap.GrayAt(5, 2).Y)
	// foreground on the border erodes, background on the border stays
	assert.Equal(t, Unknown, trimap.GrayAt(0, 0).Y)
	assert.Equal(t, Background, trimap.GrayAt(6, 0).Y)
}

func TestTrimap_BackgroundWinsOnOverlap(t *testing.T) {
	// 120 is above the foreground threshold and below the background one
	trimap := Trimap(uniformMask(6, 6, 120), 100, 155, 2)
	assert.Equal(t, Background, trimap.GrayAt(3, 3).Y)
}

func TestTrimap_LargeErosionLeavesOnlyUnknown(t *testing.T) {
	trimap := Trimap(uniformMask(3, 3, 255), 100, 155, 5)
	for _, v := range trimap.Pix {
		assert.Equal(t, Unknown, v)
	}
}

func TestCutout_KeepsDimensionsAndColours(t *testing.T) {
	img := createTestImage(12, 9)

	out, err := Cutout(img, halfMask(12, 9), defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), out.Bounds())

	fg := out.NRGBAAt(3, 4)
	assert.Equal(t, uint8(255), fg.A)
	assert.Equal(t, img.NRGBAAt(3, 4).R, fg.R)
	assert.Equal(t, uint8(0), out.NRGBAAt(9, 4).A)
}

func TestCutout_UnknownBandIsSoft(t *testing.T) {
	out, err := Cutout(createTestImage(12, 9), halfMask(12, 9), defaultOptions())
	require.NoError(t, err)

	edge := out.NRGBAAt(6, 4).A
	assert.Greater(t, edge, uint8(0))
	assert.Less(t, edge, uint8(255))
}

func TestCutout_UniformMasks(t *testing.T) {
	img := createTestImage(8, 8)

	opaque, err := Cutout(img, uniformMask(8, 8, 255), defaultOptions())
	require.NoError(t, err)
	clear, err := Cutout(img, uniformMask(8, 8, 0), defaultOptions())
	require.NoError(t, err)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			assert.Equal(t, uint8(255), opaque.NRGBAAt(x, y).A)
			assert.Equal(t, uint8(0), clear.NRGBAAt(x, y).A)
		}
	}
}

func TestCutout_NaiveUsesMask(t *testing.T) {
	mask := uniformMask(4, 4, 90)
	out, err := Cutout(createTestImage(4, 4), mask, Options{AlphaMatting: false})
	require.NoError(t, err)
	assert.Equal(t, uint8(90), out.NRGBAAt(1, 1).A)
}

func TestCutout_RespectsSourceAlpha(t *testing.T) {
	img := createTestImage(2, 2)
	img.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 0})

	out, err := Cutout(img, uniformMask(2, 2, 255), Options{})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), out.NRGBAAt(1, 1).A)
}

func TestCutout_Errors(t *testing.T) {
	_, err := Cutout(createTestImage(4, 4), nil, defaultOptions())
	assert.ErrorIs(t, err, ErrEmptyMask)

	_, err = Cutout(createTestImage(4, 4), uniformMask(5, 4, 255), defaultOptions())
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestMaskFromAlpha(t *testing.T) {
	img := createTestImage(3, 3)
	img.SetNRGBA(1, 2, color.NRGBA{0, 0, 0, 42})

	mask := MaskFromAlpha(img)
	assert.Equal(t, uint8(42), mask.GrayAt(1, 2).Y)
	assert.Equal(t, uint8(255), mask.GrayAt(0, 0).Y)
}

func TestToOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(2, 3, 6, 5))
	img.SetNRGBA(2, 3, color.NRGBA{9, 9, 9, 255})

	out := ToOrigin(img)
	assert.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
	assert.Equal(t, color.NRGBA{9, 9, 9, 255}, out.NRGBAAt(0, 0))
}
