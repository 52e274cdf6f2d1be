// Package codec provides core.Codec implementations: a libvips backend for
// production and a pure-Go fallback.
package codec

import (
	"fmt"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/image-server/core"
	apperrors "github.com/Skryldev/image-server/errors"
	"github.com/Skryldev/image-server/utils"
)

// VipsConfig configures the libvips backend.
type VipsConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
}

// Vips is the libvips-powered Codec.  Safe for concurrent use across
// goroutines; each Open returns an independent handle.
type Vips struct {
	cfg VipsConfig
}

// NewVips initialises libvips and returns a ready Codec.
// Call Shutdown() when the process exits.
func NewVips(cfg VipsConfig) *Vips {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
	})
	return &Vips{cfg: cfg}
}

// Shutdown releases all libvips resources.  Call once at process exit.
func (v *Vips) Shutdown() {
	govips.Shutdown()
}

// Metadata reads intrinsic image information.  libvips only parses the
// header, so this is cheap even for large sources.
func (v *Vips) Metadata(buf []byte) (core.Metadata, error) {
	ref, err := govips.NewImageFromBuffer(buf)
	if err != nil {
		return core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "vips.metadata", err)
	}
	defer ref.Close()
	return core.Metadata{
		Width:     ref.Width(),
		Height:    ref.Height(),
		Format:    vipsFormat(ref.Format()),
		SizeBytes: int64(len(buf)),
	}, nil
}

// Open decodes buf into a mutable handle.
func (v *Vips) Open(buf []byte) (core.Image, error) {
	ref, err := govips.NewImageFromBuffer(buf)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.open", err)
	}
	runtime.SetFinalizer(ref, func(r *govips.ImageRef) { r.Close() })
	return &VipsImage{ref: ref}, nil
}

// VipsImage wraps a *govips.ImageRef behind core.Image.
type VipsImage struct {
	ref *govips.ImageRef
}

func (i *VipsImage) Width() int  { return i.ref.Width() }
func (i *VipsImage) Height() int { return i.ref.Height() }
func (i *VipsImage) Close()      { i.ref.Close() }

func (i *VipsImage) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return apperrors.New(apperrors.CategoryCrop, "vips.resize",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, width, height))
	}
	if width == i.ref.Width() && height == i.ref.Height() {
		return nil
	}
	hscale := float64(width) / float64(i.ref.Width())
	vscale := float64(height) / float64(i.ref.Height())
	return apperrors.Wrap(apperrors.CategoryCrop, "vips.resize",
		i.ref.ResizeWithVScale(hscale, vscale, govips.KernelLanczos3))
}

func (i *VipsImage) ResizeCrop(strategy core.CropStrategy, width, height int) error {
	const op = "vips.resize_crop"
	scale := utils.CoverScale(i.ref.Width(), i.ref.Height(), width, height)
	if err := i.ref.Resize(scale, govips.KernelLanczos3); err != nil {
		return apperrors.Wrap(apperrors.CategoryCrop, op, err)
	}

	w, h := i.ref.Width(), i.ref.Height()
	cw, ch := min(width, w), min(height, h)

	switch strategy {
	case core.CropEntropy:
		if err := i.ref.SmartCrop(cw, ch, govips.InterestingEntropy); err != nil {
			return apperrors.Wrap(apperrors.CategoryCrop, op, err)
		}
	case core.CropAttention:
		if err := i.ref.SmartCrop(cw, ch, govips.InterestingAttention); err != nil {
			return apperrors.Wrap(apperrors.CategoryCrop, op, err)
		}
	default:
		x, y := anchorOffsets(strategy, w, h, cw, ch)
		if err := i.ref.ExtractArea(x, y, cw, ch); err != nil {
			return apperrors.Wrap(apperrors.CategoryCrop, op, err)
		}
	}

	// Cover scaling rounds; force the exact target size.
	return i.Resize(width, height)
}

func (i *VipsImage) ResizeContain(width, height int, background core.RGB) error {
	const op = "vips.resize_contain"
	cw, ch := utils.ContainDimensions(i.ref.Width(), i.ref.Height(), width, height)
	scale := float64(cw) / float64(i.ref.Width())
	if err := i.ref.Resize(scale, govips.KernelLanczos3); err != nil {
		return apperrors.Wrap(apperrors.CategoryCrop, op, err)
	}
	cw, ch = i.ref.Width(), i.ref.Height()
	left := (width - cw) / 2
	top := (height - ch) / 2
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	bg := &govips.Color{R: background.R, G: background.G, B: background.B}
	return apperrors.Wrap(apperrors.CategoryCrop, op,
		i.ref.EmbedBackground(left, top, width, height, bg))
}

func (i *VipsImage) Extract(r core.Rect) error {
	if r.Empty() {
		return apperrors.New(apperrors.CategoryCrop, "vips.extract",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, r.Width, r.Height))
	}
	return apperrors.Wrap(apperrors.CategoryCrop, "vips.extract",
		i.ref.ExtractArea(r.X, r.Y, r.Width, r.Height))
}

func (i *VipsImage) Sharpen(sigma float64) error {
	return apperrors.Wrap(apperrors.CategoryEncode, "vips.sharpen",
		i.ref.Sharpen(sigma, 1.0, 2.0))
}

// MeanColor averages each of the first three bands over the whole image.
// Grayscale sources reuse their single band for all three channels.
func (i *VipsImage) MeanColor() (core.RGB, error) {
	const op = "vips.mean_color"
	bands := i.ref.Bands()
	if bands <= 0 {
		return core.RGB{}, apperrors.New(apperrors.CategoryCrop, op, apperrors.ErrEmptyInput)
	}
	var mean [3]float64
	for c := 0; c < 3; c++ {
		band := c
		if band >= bands {
			band = bands - 1
		}
		ref, err := i.ref.Copy()
		if err != nil {
			return core.RGB{}, apperrors.Wrap(apperrors.CategoryCrop, op, err)
		}
		if err := ref.ExtractBand(band, 1); err != nil {
			ref.Close()
			return core.RGB{}, apperrors.Wrap(apperrors.CategoryCrop, op, err)
		}
		avg, err := ref.Average()
		ref.Close()
		if err != nil {
			return core.RGB{}, apperrors.Wrap(apperrors.CategoryCrop, op, err)
		}
		mean[c] = avg
	}
	return core.RGB{R: clampByte(mean[0]), G: clampByte(mean[1]), B: clampByte(mean[2])}, nil
}

func (i *VipsImage) Encode(f core.Format, p core.EncodeParams) ([]byte, error) {
	switch f {
	case core.FormatJPEG:
		ep := govips.NewJpegExportParams()
		if p.Quality > 0 {
			ep.Quality = p.Quality
		}
		ep.StripMetadata = true
		if p.Aggressive {
			ep.TrellisQuant = true
			ep.OvershootDeringing = true
			ep.OptimizeScans = true
			ep.OptimizeCoding = true
			ep.QuantTable = 3
		}
		buf, _, err := i.ref.ExportJpeg(ep)
		return buf, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.jpeg", err)

	case core.FormatPNG:
		ep := govips.NewPngExportParams()
		ep.StripMetadata = true
		buf, _, err := i.ref.ExportPng(ep)
		return buf, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.png", err)

	case core.FormatWebP:
		ep := govips.NewWebpExportParams()
		ep.StripMetadata = true
		buf, _, err := i.ref.ExportWebp(ep)
		return buf, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.webp", err)
	}
	return nil, apperrors.New(apperrors.CategoryEncode, "vips.encode",
		fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, f))
}

func vipsFormat(t govips.ImageType) core.Format {
	switch t {
	case govips.ImageTypeJPEG:
		return core.FormatJPEG
	case govips.ImageTypePNG:
		return core.FormatPNG
	case govips.ImageTypeWEBP:
		return core.FormatWebP
	}
	return core.FormatUnknown
}
