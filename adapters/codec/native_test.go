package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-server/core"
	apperrors "github.com/Skryldev/image-server/errors"
)

// solidPNG encodes a w x h image filled with c.
func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func openNative(t *testing.T, buf []byte) *NativeImage {
	t.Helper()
	img, err := NewNative().Open(buf)
	require.NoError(t, err)
	return img.(*NativeImage)
}

func TestNativeMetadata(t *testing.T) {
	buf := solidPNG(t, 120, 90, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	meta, err := NewNative().Metadata(buf)
	require.NoError(t, err)
	assert.Equal(t, 120, meta.Width)
	assert.Equal(t, 90, meta.Height)
	assert.Equal(t, core.FormatPNG, meta.Format)
	assert.Equal(t, int64(len(buf)), meta.SizeBytes)
}

func TestNativeMetadataUnsupported(t *testing.T) {
	_, err := NewNative().Metadata([]byte("GIF89a not supported here"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryDecode))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
}

func TestNativeResize(t *testing.T) {
	img := openNative(t, solidPNG(t, 100, 80, color.RGBA{R: 200, G: 100, B: 50, A: 255}))

	require.NoError(t, img.Resize(50, 40))
	assert.Equal(t, 50, img.Width())
	assert.Equal(t, 40, img.Height())
}

func TestNativeResizeRejectsNonPositive(t *testing.T) {
	img := openNative(t, solidPNG(t, 10, 10, color.RGBA{A: 255}))

	err := img.Resize(0, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidDimensions)
}

func TestNativeResizeCropExactOutput(t *testing.T) {
	for _, strategy := range []core.CropStrategy{
		core.CropCenter, core.CropTop, core.CropBottom, core.CropLeft,
		core.CropRight, core.CropLeftTop, core.CropRightBottom,
		core.CropEntropy, core.CropAttention,
	} {
		img := openNative(t, solidPNG(t, 100, 80, color.RGBA{R: 128, G: 128, B: 128, A: 255}))
		require.NoError(t, img.ResizeCrop(strategy, 33, 47))
		assert.Equalf(t, 33, img.Width(), "strategy %s", strategy)
		assert.Equalf(t, 47, img.Height(), "strategy %s", strategy)
	}
}

func TestNativeResizeContainPadsWithBackground(t *testing.T) {
	// A wide source into a square box leaves bands above and below.
	img := openNative(t, solidPNG(t, 100, 50, color.RGBA{R: 255, A: 255}))
	bg := core.RGB{R: 1, G: 2, B: 3}

	require.NoError(t, img.ResizeContain(60, 60, bg))
	assert.Equal(t, 60, img.Width())
	assert.Equal(t, 60, img.Height())

	corner := img.rgba.RGBAAt(0, 0)
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, corner)

	center := img.rgba.RGBAAt(30, 30)
	assert.Equal(t, uint8(255), center.A)
	assert.Greater(t, center.R, uint8(200))
}

func TestNativeExtract(t *testing.T) {
	img := openNative(t, solidPNG(t, 100, 80, color.RGBA{R: 50, G: 60, B: 70, A: 255}))

	require.NoError(t, img.Extract(core.Rect{X: 10, Y: 20, Width: 30, Height: 40}))
	assert.Equal(t, 30, img.Width())
	assert.Equal(t, 40, img.Height())
}

func TestNativeExtractOutOfBounds(t *testing.T) {
	img := openNative(t, solidPNG(t, 10, 10, color.RGBA{A: 255}))

	err := img.Extract(core.Rect{X: 50, Y: 50, Width: 10, Height: 10})
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryCrop))
}

func TestNativeMeanColor(t *testing.T) {
	img := openNative(t, solidPNG(t, 20, 20, color.RGBA{R: 40, G: 80, B: 120, A: 255}))

	mean, err := img.MeanColor()
	require.NoError(t, err)
	assert.Equal(t, core.RGB{R: 40, G: 80, B: 120}, mean)
}

func TestNativeSharpenPreservesSolidColor(t *testing.T) {
	// Unsharp masking leaves a flat field unchanged.
	img := openNative(t, solidPNG(t, 20, 20, color.RGBA{R: 90, G: 90, B: 90, A: 255}))

	require.NoError(t, img.Sharpen(0.5))
	assert.Equal(t, color.RGBA{R: 90, G: 90, B: 90, A: 255}, img.rgba.RGBAAt(10, 10))
}

func TestNativeEncodeFormats(t *testing.T) {
	src := solidPNG(t, 30, 30, color.RGBA{R: 10, G: 200, B: 90, A: 255})

	tests := []struct {
		format core.Format
		params core.EncodeParams
		magic  string
	}{
		{core.FormatJPEG, core.EncodeParams{Quality: 70, Aggressive: true}, "jpeg"},
		{core.FormatPNG, core.EncodeParams{}, "png"},
		{core.FormatWebP, core.EncodeParams{}, "webp"},
	}
	for _, tt := range tests {
		img := openNative(t, src)
		data, err := img.Encode(tt.format, tt.params)
		require.NoErrorf(t, err, "format %s", tt.format)
		require.NotEmpty(t, data)

		meta, err := NewNative().Metadata(data)
		require.NoErrorf(t, err, "format %s", tt.format)
		assert.Equal(t, tt.format, meta.Format)
		assert.Equal(t, 30, meta.Width)
		assert.Equal(t, 30, meta.Height)
	}
}

func TestNativeEncodeUnsupported(t *testing.T) {
	img := openNative(t, solidPNG(t, 10, 10, color.RGBA{A: 255}))

	_, err := img.Encode(core.Format("tiff"), core.EncodeParams{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryEncode))
}

func TestAnchorOffsets(t *testing.T) {
	// 100x80 image, 40x20 window.
	tests := []struct {
		strategy core.CropStrategy
		x, y     int
	}{
		{core.CropCenter, 30, 30},
		{core.CropTop, 30, 0},
		{core.CropBottom, 30, 60},
		{core.CropLeft, 0, 30},
		{core.CropRight, 60, 30},
		{core.CropLeftTop, 0, 0},
		{core.CropRightTop, 60, 0},
		{core.CropLeftBottom, 0, 60},
		{core.CropRightBottom, 60, 60},
	}
	for _, tt := range tests {
		x, y := anchorOffsets(tt.strategy, 100, 80, 40, 20)
		assert.Equalf(t, tt.x, x, "strategy %s x", tt.strategy)
		assert.Equalf(t, tt.y, y, "strategy %s y", tt.strategy)
	}
}

func TestAnchorOffsetsClampsOversizedWindow(t *testing.T) {
	x, y := anchorOffsets(core.CropLeftTop, 10, 10, 40, 20)
	assert.Zero(t, x)
	assert.Zero(t, y)
}
