package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-server/core"
	apperrors "github.com/Skryldev/image-server/errors"
)

// jpegMagic is enough of a JPEG header for format sniffing.
var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

type mockImage struct {
	calls []string

	extracted core.Rect
	resizedW  int
	resizedH  int
	strategy  core.CropStrategy
	contained core.RGB
	sigma     float64
	format    core.Format
	params    core.EncodeParams

	failSharpen bool
}

func (m *mockImage) Width() int  { return 100 }
func (m *mockImage) Height() int { return 100 }
func (m *mockImage) Close()      { m.calls = append(m.calls, "close") }

func (m *mockImage) Resize(w, h int) error {
	m.calls = append(m.calls, "resize")
	m.resizedW, m.resizedH = w, h
	return nil
}

func (m *mockImage) ResizeCrop(s core.CropStrategy, w, h int) error {
	m.calls = append(m.calls, "resize_crop")
	m.strategy, m.resizedW, m.resizedH = s, w, h
	return nil
}

func (m *mockImage) ResizeContain(w, h int, bg core.RGB) error {
	m.calls = append(m.calls, "resize_contain")
	m.resizedW, m.resizedH, m.contained = w, h, bg
	return nil
}

func (m *mockImage) Extract(r core.Rect) error {
	m.calls = append(m.calls, "extract")
	m.extracted = r
	return nil
}

func (m *mockImage) Sharpen(sigma float64) error {
	m.calls = append(m.calls, "sharpen")
	m.sigma = sigma
	if m.failSharpen {
		return errors.New("sharpen failed")
	}
	return nil
}

func (m *mockImage) MeanColor() (core.RGB, error) {
	m.calls = append(m.calls, "mean_color")
	return core.RGB{R: 10, G: 20, B: 30}, nil
}

func (m *mockImage) Encode(f core.Format, p core.EncodeParams) ([]byte, error) {
	m.calls = append(m.calls, "encode")
	m.format, m.params = f, p
	return []byte("encoded"), nil
}

type mockCodec struct {
	img     *mockImage
	opens   int
	openErr error
}

func (c *mockCodec) Metadata([]byte) (core.Metadata, error) {
	return core.Metadata{Width: 100, Height: 100, Format: core.FormatJPEG}, nil
}

func (c *mockCodec) Open([]byte) (core.Image, error) {
	c.opens++
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.img, nil
}

type mockCropper struct {
	rect  core.Rect
	boost *core.BoostRegion
	err   error
}

func (c *mockCropper) BestCrop(_ context.Context, _ []byte, _, _ int, boost *core.BoostRegion) (core.Rect, error) {
	c.boost = boost
	return c.rect, c.err
}

func newTransform(img *mockImage, cropper *mockCropper) (*Transformer, *mockCodec) {
	codec := &mockCodec{img: img}
	return New(codec, cropper), codec
}

func baseOptions(crop core.CropStrategy) core.Options {
	return core.Options{
		Width:   50,
		Height:  40,
		Format:  core.FormatJPEG,
		Crop:    crop,
		Quality: core.QualityOptimized,
		Density: 1.0,
	}
}

func TestTransformSmartCrop(t *testing.T) {
	img := &mockImage{}
	cropper := &mockCropper{rect: core.Rect{X: 5, Y: 6, Width: 70, Height: 56}}
	tr, _ := newTransform(img, cropper)

	boost := &core.BoostRegion{Rect: core.Rect{X: 1, Y: 2, Width: 3, Height: 4}, Weight: 1}
	opts := baseOptions(core.CropSmart)
	opts.Boost = boost

	res, err := tr.Transform(context.Background(), jpegMagic, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"extract", "resize", "sharpen", "encode", "close"}, img.calls)
	assert.Equal(t, cropper.rect, img.extracted)
	assert.Equal(t, 50, img.resizedW)
	assert.Equal(t, 40, img.resizedH)
	assert.Same(t, boost, cropper.boost)
	assert.Equal(t, []byte("encoded"), res.Data)
	assert.Equal(t, core.FormatJPEG, res.Format)
}

func TestTransformNoneCropPadsWithMeanColor(t *testing.T) {
	img := &mockImage{}
	tr, _ := newTransform(img, &mockCropper{})

	_, err := tr.Transform(context.Background(), jpegMagic, baseOptions(core.CropNone))
	require.NoError(t, err)

	assert.Equal(t, []string{"mean_color", "resize_contain", "sharpen", "encode", "close"}, img.calls)
	assert.Equal(t, core.RGB{R: 10, G: 20, B: 30}, img.contained)
}

func TestTransformPositionalCrop(t *testing.T) {
	for _, strategy := range []core.CropStrategy{
		core.CropCenter, core.CropTop, core.CropRightTop, core.CropRight,
		core.CropRightBottom, core.CropBottom, core.CropLeftBottom,
		core.CropLeft, core.CropLeftTop, core.CropEntropy, core.CropAttention,
	} {
		img := &mockImage{}
		tr, _ := newTransform(img, &mockCropper{})

		_, err := tr.Transform(context.Background(), jpegMagic, baseOptions(strategy))
		require.NoError(t, err)

		assert.Equalf(t, []string{"resize_crop", "sharpen", "encode", "close"}, img.calls,
			"strategy %s", strategy)
		assert.Equal(t, strategy, img.strategy)
	}
}

func TestTransformAlwaysSharpensWithFixedSigma(t *testing.T) {
	img := &mockImage{}
	tr, _ := newTransform(img, &mockCropper{})

	_, err := tr.Transform(context.Background(), jpegMagic, baseOptions(core.CropCenter))
	require.NoError(t, err)

	assert.Equal(t, 0.5, img.sigma)
}

func TestTransformOriginalPassthroughSkipsPipeline(t *testing.T) {
	img := &mockImage{}
	tr, codec := newTransform(img, &mockCropper{})

	res, err := tr.Transform(context.Background(), jpegMagic, core.Options{Original: true})
	require.NoError(t, err)

	assert.Equal(t, jpegMagic, res.Data)
	assert.Equal(t, core.FormatJPEG, res.Format)
	assert.Zero(t, codec.opens)
	assert.Empty(t, img.calls)
}

func TestTransformUnresolvedDimensionsRejected(t *testing.T) {
	tr, _ := newTransform(&mockImage{}, &mockCropper{})

	opts := baseOptions(core.CropCenter)
	opts.Height = 0
	_, err := tr.Transform(context.Background(), jpegMagic, opts)

	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryInput))
}

func TestTransformCropperFailurePropagates(t *testing.T) {
	img := &mockImage{}
	cropper := &mockCropper{err: errors.New("pathological geometry")}
	tr, _ := newTransform(img, cropper)

	_, err := tr.Transform(context.Background(), jpegMagic, baseOptions(core.CropSmart))

	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryCrop))
	assert.NotContains(t, img.calls, "encode")
}

func TestTransformDecodeFailurePropagates(t *testing.T) {
	codec := &mockCodec{openErr: errors.New("corrupt image")}
	tr := New(codec, &mockCropper{})

	_, err := tr.Transform(context.Background(), jpegMagic, baseOptions(core.CropCenter))

	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryDecode))
}

func TestTransformEmptyInputRejected(t *testing.T) {
	tr, _ := newTransform(&mockImage{}, &mockCropper{})

	_, err := tr.Transform(context.Background(), nil, baseOptions(core.CropCenter))

	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryInput))
}

func TestEncodeParamsTiers(t *testing.T) {
	tests := []struct {
		format  core.Format
		tier    core.QualityTier
		quality int
		aggr    bool
	}{
		{core.FormatJPEG, core.QualityOptimized, 70, true},
		{core.FormatJPEG, core.QualityBalanced, 80, false},
		{core.FormatJPEG, core.QualityHigh, 88, false},
		{core.FormatPNG, core.QualityOptimized, 0, false},
		{core.FormatPNG, core.QualityHigh, 0, false},
		{core.FormatWebP, core.QualityOptimized, 0, false},
		{core.FormatWebP, core.QualityBalanced, 0, false},
	}
	for _, tt := range tests {
		p := EncodeParams(tt.format, tt.tier)
		assert.Equalf(t, tt.quality, p.Quality, "%s/%s", tt.format, tt.tier)
		assert.Equalf(t, tt.aggr, p.Aggressive, "%s/%s", tt.format, tt.tier)
	}
}

type recordingHook struct {
	stages []string
	errs   int
}

func (h *recordingHook) BeforeStage(_ context.Context, stage string) {
	h.stages = append(h.stages, stage)
}

func (h *recordingHook) AfterStage(_ context.Context, _ string, _ time.Duration, err error) {
	if err != nil {
		h.errs++
	}
}

func TestTransformHooksObserveStages(t *testing.T) {
	img := &mockImage{failSharpen: true}
	tr, _ := newTransform(img, &mockCropper{})
	hook := &recordingHook{}
	tr.AddHook(hook)

	_, err := tr.Transform(context.Background(), jpegMagic, baseOptions(core.CropCenter))

	require.Error(t, err)
	assert.Equal(t, []string{StageDecode, StageCrop, StageSharpen}, hook.stages)
	assert.Equal(t, 1, hook.errs)
}
