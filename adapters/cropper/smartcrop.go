// Package cropper implements the saliency-based crop-window search.
package cropper

import (
	"context"
	"image"

	"github.com/muesli/smartcrop"
	"github.com/muesli/smartcrop/nfnt"

	"github.com/Skryldev/image-server/adapters/codec"
	"github.com/Skryldev/image-server/core"
	apperrors "github.com/Skryldev/image-server/errors"
)

// SmartCrop finds the most salient window of the target aspect ratio using
// the smartcrop edge/skin/saturation analyzer.
type SmartCrop struct {
	analyzer smartcrop.Analyzer
}

// NewSmartCrop returns a SaliencyCropper with the default analyzer.
func NewSmartCrop() *SmartCrop {
	return &SmartCrop{analyzer: smartcrop.NewAnalyzer(nfnt.NewDefaultResizer())}
}

// BestCrop searches buf for the best window matching width x height.  A boost
// region biases the result: the chosen window is pulled toward it,
// proportionally to its weight, while staying inside the source bounds.
func (s *SmartCrop) BestCrop(ctx context.Context, buf []byte, width, height int, boost *core.BoostRegion) (core.Rect, error) {
	const op = "smartcrop.best_crop"
	if err := ctx.Err(); err != nil {
		return core.Rect{}, apperrors.Wrap(apperrors.CategoryCrop, op, err)
	}

	img, _, err := codec.DecodeImage(buf)
	if err != nil {
		return core.Rect{}, apperrors.Wrap(apperrors.CategoryCrop, op, err)
	}

	window, err := s.analyzer.FindBestCrop(img, width, height)
	if err != nil {
		return core.Rect{}, apperrors.Wrap(apperrors.CategoryCrop, op, err)
	}

	rect := core.Rect{
		X:      window.Min.X,
		Y:      window.Min.Y,
		Width:  window.Dx(),
		Height: window.Dy(),
	}
	if boost != nil {
		rect = biasToward(rect, *boost, img.Bounds())
	}
	return rect, nil
}

// biasToward shifts the crop window halfway toward the boost region's center,
// scaled by the boost weight and clamped to the source bounds.  The window
// size never changes: the boost is a bias, not a hard constraint.
func biasToward(rect core.Rect, boost core.BoostRegion, bounds image.Rectangle) core.Rect {
	cropCX := rect.X + rect.Width/2
	cropCY := rect.Y + rect.Height/2
	boostCX := boost.X + boost.Width/2
	boostCY := boost.Y + boost.Height/2

	shiftX := int(float64(boostCX-cropCX) * 0.5 * boost.Weight)
	shiftY := int(float64(boostCY-cropCY) * 0.5 * boost.Weight)

	rect.X = clamp(rect.X+shiftX, bounds.Min.X, bounds.Max.X-rect.Width)
	rect.Y = clamp(rect.Y+shiftY, bounds.Min.Y, bounds.Max.Y-rect.Height)
	return rect
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
