package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDecode_PNG(t *testing.T) {
	src := createTestImage(8, 6, color.NRGBA{10, 20, 30, 255})
	data, err := EncodePNG(src)
	require.NoError(t, err)

	img, format, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
}

func TestDecode_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, createTestImage(16, 16, color.NRGBA{200, 0, 0, 255}), nil))

	img, err := DecodeNRGBA(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
	assert.Equal(t, uint8(255), img.NRGBAAt(4, 4).A)
}

func TestDecode_Invalid(t *testing.T) {
	_, _, err := Decode([]byte("not an image"))
	assert.Error(t, err)

	_, _, err = Decode(nil)
	assert.Error(t, err)
}

func TestEncode_WebPRoundTrip(t *testing.T) {
	src := createTestImage(4, 4, color.NRGBA{0, 128, 255, 255})
	data, contentType, err := Encode(src, "webp")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", contentType)

	img, format, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, _, err := Encode(createTestImage(1, 1, color.NRGBA{}), "tiff")
	assert.Error(t, err)
}

func TestToNRGBA_ShiftsOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 9, 7))
	src.Set(5, 5, color.RGBA{255, 0, 0, 255})

	out := ToNRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(0, 0))
}

func TestResize_ExactDimensions(t *testing.T) {
	src := createTestImage(40, 10, color.NRGBA{50, 60, 70, 255})

	for _, filter := range []string{"nearest", "bilinear", "catmullrom", "lanczos"} {
		t.Run(filter, func(t *testing.T) {
			out, err := Resize(src, 13, 29, filter)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 13, 29), out.Bounds())
		})
	}
}

func TestResize_Errors(t *testing.T) {
	src := createTestImage(4, 4, color.NRGBA{})

	_, err := Resize(src, 0, 4, "catmullrom")
	assert.Error(t, err)

	_, err = Resize(src, 2, 2, "sinc")
	assert.Error(t, err)
}

func TestFitTo(t *testing.T) {
	bg := createTestImage(100, 50, color.NRGBA{0, 0, 255, 255})
	ref := createTestImage(20, 30, color.NRGBA{})

	out, err := FitTo(bg, ref, "")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 30), out.Bounds())
	px := out.NRGBAAt(10, 15)
	assert.InDelta(t, 255, int(px.B), 1)
	assert.InDelta(t, 0, int(px.R), 1)
}

func TestAlphaComposite(t *testing.T) {
	bg := createTestImage(3, 1, color.NRGBA{0, 0, 255, 255})
	fg := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	fg.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	fg.SetNRGBA(1, 0, color.NRGBA{255, 0, 0, 0})
	fg.SetNRGBA(2, 0, color.NRGBA{255, 0, 0, 128})

	out, err := AlphaComposite(bg, fg)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(0, 0), "opaque foreground wins")
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, out.NRGBAAt(1, 0), "transparent foreground shows background")

	mixed := out.NRGBAAt(2, 0)
	assert.Equal(t, uint8(255), mixed.A)
	assert.InDelta(t, 128, int(mixed.R), 1)
	assert.InDelta(t, 127, int(mixed.B), 1)

	// inputs untouched
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, bg.NRGBAAt(0, 0))
	assert.Equal(t, uint8(0), fg.NRGBAAt(1, 0).A)
}

func TestAlphaComposite_TransparentBackground(t *testing.T) {
	bg := createTestImage(1, 1, color.NRGBA{0, 0, 0, 0})
	fg := createTestImage(1, 1, color.NRGBA{10, 20, 30, 100})

	out, err := AlphaComposite(bg, fg)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{10, 20, 30, 100}, out.NRGBAAt(0, 0))
}

func TestAlphaComposite_SizeMismatch(t *testing.T) {
	_, err := AlphaComposite(createTestImage(2, 2, color.NRGBA{}), createTestImage(3, 2, color.NRGBA{}))
	assert.ErrorIs(t, err, ErrSizeMismatch)
}
