package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	xwebp "golang.org/x/image/webp"

	"github.com/Skryldev/image-server/core"
	apperrors "github.com/Skryldev/image-server/errors"
	"github.com/Skryldev/image-server/utils"
)

// Native is a cgo-free Codec built on the standard image packages, with WebP
// decode from golang.org/x/image and WebP encode from chai2010/webp.  It
// trades speed for portability; production deployments use Vips.
type Native struct{}

// NewNative returns the pure-Go Codec.
func NewNative() *Native { return &Native{} }

// DecodeImage decodes buf using its sniffed format.  Exported for reuse by
// the saliency cropper, which works on image.Image directly.
func DecodeImage(buf []byte) (image.Image, core.Format, error) {
	f := core.Format(utils.DetectFormat(buf))
	r := bytes.NewReader(buf)
	var (
		img image.Image
		err error
	)
	switch f {
	case core.FormatJPEG:
		img, err = jpeg.Decode(r)
	case core.FormatPNG:
		img, err = png.Decode(r)
	case core.FormatWebP:
		img, err = xwebp.Decode(r)
	default:
		return nil, f, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, f)
	}
	return img, f, err
}

func (n *Native) Metadata(buf []byte) (core.Metadata, error) {
	const op = "native.metadata"
	f := core.Format(utils.DetectFormat(buf))
	r := bytes.NewReader(buf)
	var (
		cfg image.Config
		err error
	)
	switch f {
	case core.FormatJPEG:
		cfg, err = jpeg.DecodeConfig(r)
	case core.FormatPNG:
		cfg, err = png.DecodeConfig(r)
	case core.FormatWebP:
		cfg, err = xwebp.DecodeConfig(r)
	default:
		err = fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, f)
	}
	if err != nil {
		return core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	return core.Metadata{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    f,
		SizeBytes: int64(len(buf)),
	}, nil
}

func (n *Native) Open(buf []byte) (core.Image, error) {
	img, _, err := DecodeImage(buf)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "native.open", err)
	}
	return &NativeImage{rgba: toRGBA(img)}, nil
}

// NativeImage is the pure-Go core.Image handle.
type NativeImage struct {
	rgba *image.RGBA
}

func (i *NativeImage) Width() int  { return i.rgba.Bounds().Dx() }
func (i *NativeImage) Height() int { return i.rgba.Bounds().Dy() }
func (i *NativeImage) Close()      {}

func (i *NativeImage) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return apperrors.New(apperrors.CategoryCrop, "native.resize",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, width, height))
	}
	if width == i.Width() && height == i.Height() {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), i.rgba, i.rgba.Bounds(), xdraw.Src, nil)
	i.rgba = dst
	return nil
}

func (i *NativeImage) ResizeCrop(strategy core.CropStrategy, width, height int) error {
	scale := utils.CoverScale(i.Width(), i.Height(), width, height)
	sw := int(math.Round(float64(i.Width()) * scale))
	sh := int(math.Round(float64(i.Height()) * scale))
	if err := i.Resize(max(sw, 1), max(sh, 1)); err != nil {
		return err
	}

	cw, ch := min(width, i.Width()), min(height, i.Height())
	var x, y int
	switch strategy {
	case core.CropEntropy:
		x, y = bestWindow(i.rgba, cw, ch, windowEntropy)
	case core.CropAttention:
		x, y = bestWindow(i.rgba, cw, ch, windowSaturation)
	default:
		x, y = anchorOffsets(strategy, i.Width(), i.Height(), cw, ch)
	}
	i.rgba = copyRect(i.rgba, image.Rect(x, y, x+cw, y+ch))

	// Cover scaling rounds; force the exact target size.
	return i.Resize(width, height)
}

func (i *NativeImage) ResizeContain(width, height int, background core.RGB) error {
	cw, ch := utils.ContainDimensions(i.Width(), i.Height(), width, height)
	if err := i.Resize(cw, ch); err != nil {
		return err
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	bg := color.RGBA{R: background.R, G: background.G, B: background.B, A: 255}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	offset := image.Pt((width-cw)/2, (height-ch)/2)
	draw.Draw(dst, image.Rectangle{Min: offset, Max: offset.Add(image.Pt(cw, ch))},
		i.rgba, i.rgba.Bounds().Min, draw.Src)
	i.rgba = dst
	return nil
}

func (i *NativeImage) Extract(r core.Rect) error {
	rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Intersect(i.rgba.Bounds())
	if rect.Empty() {
		return apperrors.New(apperrors.CategoryCrop, "native.extract",
			fmt.Errorf("%w: window outside image bounds", apperrors.ErrInvalidDimensions))
	}
	i.rgba = copyRect(i.rgba, rect)
	return nil
}

// Sharpen applies a single unsharp-mask pass: a 3x3 gaussian blur subtracted
// from the source, scaled by sigma.
func (i *NativeImage) Sharpen(sigma float64) error {
	if sigma <= 0 {
		return nil
	}
	src := i.rgba
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			for c := 0; c < 3; c++ {
				blur := blurAt(src, x, y, c)
				v := float64(src.RGBAAt(x, y).R)
				switch c {
				case 1:
					v = float64(src.RGBAAt(x, y).G)
				case 2:
					v = float64(src.RGBAAt(x, y).B)
				}
				sharp := clampByte(v + sigma*(v-blur))
				o := dst.PixOffset(x, y)
				dst.Pix[o+c] = sharp
			}
			dst.Pix[dst.PixOffset(x, y)+3] = src.RGBAAt(x, y).A
		}
	}
	i.rgba = dst
	return nil
}

func (i *NativeImage) MeanColor() (core.RGB, error) {
	b := i.rgba.Bounds()
	if b.Empty() {
		return core.RGB{}, apperrors.New(apperrors.CategoryCrop, "native.mean_color", apperrors.ErrEmptyInput)
	}
	var r, g, bl, n uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := i.rgba.RGBAAt(x, y)
			r += uint64(px.R)
			g += uint64(px.G)
			bl += uint64(px.B)
			n++
		}
	}
	return core.RGB{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n)}, nil
}

func (i *NativeImage) Encode(f core.Format, p core.EncodeParams) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case core.FormatJPEG:
		q := p.Quality
		if q <= 0 {
			q = 85
		}
		// The aggressive encoder mode is a libvips capability; the pure-Go
		// encoder only honours the quality value.
		if err := jpeg.Encode(&buf, i.rgba, &jpeg.Options{Quality: q}); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "native.encode.jpeg", err)
		}
	case core.FormatPNG:
		if err := png.Encode(&buf, i.rgba); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "native.encode.png", err)
		}
	case core.FormatWebP:
		q := float32(75)
		if p.Quality > 0 {
			q = float32(p.Quality)
		}
		if err := webp.Encode(&buf, i.rgba, &webp.Options{Quality: q}); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "native.encode.webp", err)
		}
	default:
		return nil, apperrors.New(apperrors.CategoryEncode, "native.encode",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, f))
	}
	return buf.Bytes(), nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func copyRect(src *image.RGBA, r image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst
}

// blurAt computes a 3x3 gaussian (1-2-1 kernel) of channel c around (x, y),
// clamping at the edges.
func blurAt(img *image.RGBA, x, y, c int) float64 {
	b := img.Bounds()
	var sum, weight float64
	kernel := [3]float64{1, 2, 1}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			px, py := x+dx, y+dy
			if px < b.Min.X || px >= b.Max.X || py < b.Min.Y || py >= b.Max.Y {
				continue
			}
			w := kernel[dx+1] * kernel[dy+1]
			o := img.PixOffset(px, py)
			sum += w * float64(img.Pix[o+c])
			weight += w
		}
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

// bestWindow slides a cw x ch window over img on a coarse grid and returns
// the offset maximizing score.
func bestWindow(img *image.RGBA, cw, ch int, score func(*image.RGBA, image.Rectangle) float64) (int, int) {
	b := img.Bounds()
	maxX := b.Dx() - cw
	maxY := b.Dy() - ch
	stepX := max(maxX/16, 1)
	stepY := max(maxY/16, 1)

	bestX, bestY := 0, 0
	best := math.Inf(-1)
	for y := 0; y <= maxY; y += stepY {
		for x := 0; x <= maxX; x += stepX {
			r := image.Rect(b.Min.X+x, b.Min.Y+y, b.Min.X+x+cw, b.Min.Y+y+ch)
			if s := score(img, r); s > best {
				best = s
				bestX, bestY = x, y
			}
		}
	}
	return bestX, bestY
}

// windowEntropy scores a window by the Shannon entropy of its sampled
// luminance histogram.
func windowEntropy(img *image.RGBA, r image.Rectangle) float64 {
	var hist [64]int
	total := 0
	for y := r.Min.Y; y < r.Max.Y; y += 4 {
		for x := r.Min.X; x < r.Max.X; x += 4 {
			px := img.RGBAAt(x, y)
			lum := (299*int(px.R) + 587*int(px.G) + 114*int(px.B)) / 1000
			hist[lum>>2]++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	entropy := 0.0
	for _, n := range hist {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// windowSaturation scores a window by its sampled mean saturation, a cheap
// stand-in for attention-style saliency.
func windowSaturation(img *image.RGBA, r image.Rectangle) float64 {
	var sum float64
	total := 0
	for y := r.Min.Y; y < r.Max.Y; y += 4 {
		for x := r.Min.X; x < r.Max.X; x += 4 {
			px := img.RGBAAt(x, y)
			hi := max(int(px.R), max(int(px.G), int(px.B)))
			lo := min(int(px.R), min(int(px.G), int(px.B)))
			if hi > 0 {
				sum += float64(hi-lo) / float64(hi)
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return sum / float64(total)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
