// Package pipeline turns source bytes into the requested rendition: crop
// strategy dispatch, the optimizer pass, and the final encode.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Skryldev/image-server/core"
	apperrors "github.com/Skryldev/image-server/errors"
	"github.com/Skryldev/image-server/utils"
)

// sharpenSigma is the fixed unsharp-mask strength applied after every resize
// to compensate for softening.
const sharpenSigma = 0.5

// Stage names reported to hooks and metrics.
const (
	StageDecode    = "decode"
	StageSmartCrop = "smart_crop"
	StageCrop      = "crop"
	StageSharpen   = "sharpen"
	StageEncode    = "encode"
)

// Transformer executes the transform pipeline.  It is safe for concurrent
// use; each call owns its buffers end-to-end.
type Transformer struct {
	codec   core.Codec
	cropper core.SaliencyCropper
	hooks   []core.Hook
}

// New creates a Transformer over the given capabilities.
func New(codec core.Codec, cropper core.SaliencyCropper) *Transformer {
	return &Transformer{codec: codec, cropper: cropper}
}

// AddHook registers an observer for stage events.
func (t *Transformer) AddHook(h core.Hook) { t.hooks = append(t.hooks, h) }

// Transform runs the full pipeline on src.  opts must be dimension-resolved
// (or original).  Capability failures propagate unrecovered: no retry, no
// fallback strategy.
func (t *Transformer) Transform(ctx context.Context, src []byte, opts core.Options) (*core.Result, error) {
	if len(src) == 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "transform", apperrors.ErrEmptyInput)
	}

	// Original-passthrough: the source bytes go back untouched, skipping the
	// optimizer entirely.
	if opts.Original {
		return &core.Result{
			Data:   src,
			Format: core.Format(utils.DetectFormat(src)),
		}, nil
	}

	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "transform",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, opts.Width, opts.Height))
	}

	var img core.Image
	err := t.runStage(ctx, StageDecode, func() error {
		var err error
		img, err = t.codec.Open(src)
		return apperrors.Wrap(apperrors.CategoryDecode, StageDecode, err)
	})
	if err != nil {
		return nil, err
	}
	defer img.Close()

	switch opts.Crop {
	case core.CropSmart:
		err = t.runStage(ctx, StageSmartCrop, func() error {
			rect, err := t.cropper.BestCrop(ctx, src, opts.Width, opts.Height, opts.Boost)
			if err != nil {
				return apperrors.Wrap(apperrors.CategoryCrop, StageSmartCrop, err)
			}
			if err := img.Extract(rect); err != nil {
				return apperrors.Wrap(apperrors.CategoryCrop, StageSmartCrop, err)
			}
			return apperrors.Wrap(apperrors.CategoryCrop, StageSmartCrop,
				img.Resize(opts.Width, opts.Height))
		})
	case core.CropNone:
		err = t.runStage(ctx, StageCrop, func() error {
			mean, err := img.MeanColor()
			if err != nil {
				return apperrors.Wrap(apperrors.CategoryCrop, StageCrop, err)
			}
			return apperrors.Wrap(apperrors.CategoryCrop, StageCrop,
				img.ResizeContain(opts.Width, opts.Height, mean))
		})
	default:
		err = t.runStage(ctx, StageCrop, func() error {
			return apperrors.Wrap(apperrors.CategoryCrop, StageCrop,
				img.ResizeCrop(opts.Crop, opts.Width, opts.Height))
		})
	}
	if err != nil {
		return nil, err
	}

	err = t.runStage(ctx, StageSharpen, func() error {
		return apperrors.Wrap(apperrors.CategoryEncode, StageSharpen, img.Sharpen(sharpenSigma))
	})
	if err != nil {
		return nil, err
	}

	var data []byte
	err = t.runStage(ctx, StageEncode, func() error {
		var err error
		data, err = img.Encode(opts.Format, EncodeParams(opts.Format, opts.Quality))
		return apperrors.Wrap(apperrors.CategoryEncode, StageEncode, err)
	})
	if err != nil {
		return nil, err
	}

	return &core.Result{
		Data:   data,
		Format: opts.Format,
		Width:  opts.Width,
		Height: opts.Height,
	}, nil
}

// EncodeParams maps a quality tier onto format-specific encoder settings.
// Only JPEG varies by tier; PNG and WebP always encode with defaults.
func EncodeParams(f core.Format, q core.QualityTier) core.EncodeParams {
	if f != core.FormatJPEG {
		return core.EncodeParams{}
	}
	switch q {
	case core.QualityBalanced:
		return core.EncodeParams{Quality: 80}
	case core.QualityHigh:
		return core.EncodeParams{Quality: 88}
	default:
		return core.EncodeParams{Quality: 70, Aggressive: true}
	}
}

// runStage executes a single stage, calling hooks and timing it.
func (t *Transformer) runStage(ctx context.Context, stage string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryInput, stage, err)
	}
	for _, h := range t.hooks {
		h.BeforeStage(ctx, stage)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	for _, h := range t.hooks {
		h.AfterStage(ctx, stage, elapsed, err)
	}
	return err
}
