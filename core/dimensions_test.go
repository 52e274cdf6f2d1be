package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func resolve(raw string, srcW, srcH int) Options {
	opts := ParseOptions(raw, Metadata{Width: srcW, Height: srcH, Format: FormatJPEG})
	return ResolveDimensions(opts, srcW, srcH)
}

func TestResolveWidthOnlyPreservesAspect(t *testing.T) {
	opts := resolve("/a.jpg?width=300", 1000, 500)

	assert.Equal(t, 300, opts.Width)
	assert.Equal(t, 150, opts.Height)
}

func TestResolveHeightOnlyPreservesAspect(t *testing.T) {
	opts := resolve("/a.jpg?height=150", 1000, 500)

	assert.Equal(t, 300, opts.Width)
	assert.Equal(t, 150, opts.Height)
}

func TestResolveTruncatesTowardZero(t *testing.T) {
	// 100 * 333 / 1000 = 33.3 -> 33
	opts := resolve("/a.jpg?width=100", 1000, 333)

	assert.Equal(t, 33, opts.Height)
}

func TestResolveShortSidePortrait(t *testing.T) {
	opts := resolve("/a.jpg?shortSide=200", 500, 1000)

	assert.Equal(t, 200, opts.Width)
	assert.Equal(t, 400, opts.Height)
}

func TestResolveShortSideLandscape(t *testing.T) {
	opts := resolve("/a.jpg?shortSide=200", 1000, 500)

	assert.Equal(t, 200, opts.Height)
	assert.Equal(t, 400, opts.Width)
}

func TestResolveLongSide(t *testing.T) {
	opts := resolve("/a.jpg?longSide=500", 1000, 500)
	assert.Equal(t, 500, opts.Width)
	assert.Equal(t, 250, opts.Height)

	opts = resolve("/a.jpg?longSide=500", 500, 1000)
	assert.Equal(t, 250, opts.Width)
	assert.Equal(t, 500, opts.Height)
}

func TestResolveShortSideTakesPriorityOverLongSide(t *testing.T) {
	opts := resolve("/a.jpg?shortSide=200&longSide=900", 1000, 500)

	assert.Equal(t, 200, opts.Height)
	assert.Equal(t, 400, opts.Width)
}

func TestResolveNoDirectiveCopiesSource(t *testing.T) {
	opts := resolve("/a.jpg?crop=center", 1000, 500)

	assert.Equal(t, 1000, opts.Width)
	assert.Equal(t, 500, opts.Height)
}

func TestResolveExplicitPairUntouched(t *testing.T) {
	opts := resolve("/a.jpg?width=200&height=200", 1000, 500)

	assert.Equal(t, 200, opts.Width)
	assert.Equal(t, 200, opts.Height)
}

func TestResolveDensityScalesAfterDerivation(t *testing.T) {
	opts := resolve("/a.jpg?density=2.0&width=300", 1000, 500)

	assert.Equal(t, 600, opts.Width)
	assert.Equal(t, 300, opts.Height)
}

func TestResolveDensityTruncates(t *testing.T) {
	opts := resolve("/a.jpg?density=1.5&width=3&height=3", 1000, 500)

	// 3 * 1.5 = 4.5 -> 4
	assert.Equal(t, 4, opts.Width)
	assert.Equal(t, 4, opts.Height)
}

func TestResolveDensityScalesShortAndLongSide(t *testing.T) {
	opts := resolve("/a.jpg?density=2.0&shortSide=100", 1000, 500)

	assert.Equal(t, 200, opts.ShortSide)
	assert.Equal(t, 200, opts.Height)
	assert.Equal(t, 400, opts.Width)
}

func TestResolveOriginalUntouched(t *testing.T) {
	opts := resolve("/a.jpg", 1000, 500)

	assert.True(t, opts.Original)
	assert.Zero(t, opts.Width)
	assert.Zero(t, opts.Height)
}

func TestResolveRangeClampedEqualsOmitted(t *testing.T) {
	clamped := resolve("/a.jpg?width=9999&height=200", 1000, 500)
	omitted := resolve("/a.jpg?height=200", 1000, 500)

	assert.Equal(t, omitted.Width, clamped.Width)
	assert.Equal(t, omitted.Height, clamped.Height)
}
