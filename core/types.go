package core

// Format identifies an image container.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// ParseFormat maps a directive value onto the closed format set.
// The second return is false for anything outside the set.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatJPEG, FormatPNG, FormatWebP:
		return Format(s), true
	}
	return FormatUnknown, false
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	}
	return "application/octet-stream"
}

// CropStrategy selects how the source is cropped to the target aspect.
type CropStrategy string

const (
	CropSmart       CropStrategy = "smart"
	CropEntropy     CropStrategy = "entropy"
	CropAttention   CropStrategy = "attention"
	CropCenter      CropStrategy = "center"
	CropTop         CropStrategy = "top"
	CropRightTop    CropStrategy = "rightTop"
	CropRight       CropStrategy = "right"
	CropRightBottom CropStrategy = "rightBottom"
	CropBottom      CropStrategy = "bottom"
	CropLeftBottom  CropStrategy = "leftBottom"
	CropLeft        CropStrategy = "left"
	CropLeftTop     CropStrategy = "leftTop"
	CropNone        CropStrategy = "none"
)

// ParseCropStrategy maps a directive value onto the closed strategy set.
func ParseCropStrategy(s string) (CropStrategy, bool) {
	switch CropStrategy(s) {
	case CropSmart, CropEntropy, CropAttention, CropCenter, CropTop,
		CropRightTop, CropRight, CropRightBottom, CropBottom,
		CropLeftBottom, CropLeft, CropLeftTop, CropNone:
		return CropStrategy(s), true
	}
	return "", false
}

// QualityTier selects the encode quality policy.
type QualityTier string

const (
	QualityOptimized QualityTier = "optimized"
	QualityBalanced  QualityTier = "balanced"
	QualityHigh      QualityTier = "high"
)

// ParseQualityTier maps a directive value onto the closed tier set.
func ParseQualityTier(s string) (QualityTier, bool) {
	switch QualityTier(s) {
	case QualityOptimized, QualityBalanced, QualityHigh:
		return QualityTier(s), true
	}
	return "", false
}

// Directive bounds.  Dimensions are valid strictly inside (0, DimensionLimit);
// density is valid inside [DensityMin, DensityMax].
const (
	DimensionLimit = 5000
	DensityMin     = 1.0
	DensityMax     = 3.0
)

// Rect is a pixel-aligned window within an image.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the rect covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// BoostRegion biases the saliency search toward a region of interest.
// It is a bias, not a hard constraint: the chosen window is pulled toward
// the region but stays within source bounds.
type BoostRegion struct {
	Rect
	Weight float64
}

// RGB is an opaque color, used for contain-fit border padding.
type RGB struct {
	R, G, B uint8
}

// Metadata holds intrinsic source image information, read once per request.
type Metadata struct {
	Width, Height int
	Format        Format
	SizeBytes     int64
}

// Options is the normalized, validated directive set for one request.
// It is fully constructed before any transform runs.
type Options struct {
	// RawURL is the verbatim request string (path + query, unnormalized).
	// It is the cache key.
	RawURL string
	// Path is the percent-decoded request path; it decides local vs remote
	// addressing.
	Path string

	Width, Height       int
	ShortSide, LongSide int

	Format  Format
	Crop    CropStrategy
	Boost   *BoostRegion
	Quality QualityTier
	Density float64

	// Original is true only when the request carries no directives at all;
	// the source bytes pass through untouched.
	Original bool
}

// EncodeParams carries format-specific encoding parameters.
type EncodeParams struct {
	Quality int // 1-100; 0 = encoder default
	// Aggressive enables the expensive JPEG encoder mode (trellis
	// quantisation, overshoot deringing, scan optimisation).
	Aggressive bool
}

// Result is the outcome of one transform.
type Result struct {
	Data          []byte
	Format        Format
	Width, Height int
}
