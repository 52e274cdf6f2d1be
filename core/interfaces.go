package core

import (
	"context"
	"time"
)

// Codec provides raw image primitives (decode, metadata, resize, extract,
// sharpen, encode).  Implementations live in adapters/codec/.
type Codec interface {
	// Metadata inspects buf without decoding pixel data where possible.
	Metadata(buf []byte) (Metadata, error)
	// Open decodes buf into a mutable Image handle.  The caller must Close it.
	Open(buf []byte) (Image, error)
}

// Image is a decoded handle owned by a single request.  Implementations are
// not required to be safe for concurrent use; a request never shares one.
type Image interface {
	Width() int
	Height() int

	// Resize scales to exactly width x height, ignoring aspect ratio.
	Resize(width, height int) error
	// ResizeCrop scales to cover width x height and crops anchored per the
	// strategy.  Valid strategies are the positional anchors plus the
	// entropy and attention heuristics.
	ResizeCrop(strategy CropStrategy, width, height int) error
	// ResizeContain scales to fit inside width x height preserving the whole
	// image, padding any border with the background color at full opacity.
	ResizeContain(width, height int, background RGB) error
	// Extract crops to the given window.
	Extract(r Rect) error
	// Sharpen applies an unsharp-mask pass.
	Sharpen(sigma float64) error
	// MeanColor computes the per-channel mean over the current image.
	MeanColor() (RGB, error)
	// Encode serialises the current image in the given format.
	Encode(f Format, p EncodeParams) ([]byte, error)

	Close()
}

// SaliencyCropper searches for the source window of highest visual salience
// matching the target aspect ratio.  Implementations live in adapters/cropper/.
type SaliencyCropper interface {
	BestCrop(ctx context.Context, buf []byte, width, height int, boost *BoostRegion) (Rect, error)
}

// ByteSource fetches raw source bytes for a decoded request path.
// Implementations live in adapters/source/.
type ByteSource interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// KeyValueCache stores encoded results keyed by the raw request string.
// Implementations live in adapters/cache/.  No TTL or eviction is imposed
// here; that responsibility belongs to the backend.
type KeyValueCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// MetricsCollector receives observations from the cache frontend and the
// transform pipeline.
type MetricsCollector interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordStageDuration(stage string, d time.Duration)
	RecordTransform(strategy CropStrategy, format Format)
	RecordError(stage string)
}

// Hook is an optional observer invoked around pipeline stages.
type Hook interface {
	BeforeStage(ctx context.Context, stage string)
	AfterStage(ctx context.Context, stage string, d time.Duration, err error)
}
