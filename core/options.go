package core

import (
	"net/url"
	"strconv"
	"strings"
)

// RequestPath returns the percent-decoded path component of a raw request
// string.  It never fails: an undecodable path is returned verbatim.
func RequestPath(rawURL string) string {
	path, _, _ := strings.Cut(rawURL, "?")
	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}
	return path
}

// ParseOptions normalizes a raw request string into Options.
//
// Parsing is fail-open on purpose: unknown keys, malformed values, and
// out-of-range numbers are silently dropped, leaving the default.  Garbled
// directives must never abort processing.
func ParseOptions(rawURL string, meta Metadata) Options {
	opts := Options{
		RawURL:  rawURL,
		Format:  meta.Format,
		Crop:    CropSmart,
		Quality: QualityOptimized,
		Density: DensityMin,
	}

	path, query, hasQuery := strings.Cut(rawURL, "?")
	opts.Path = path
	if decoded, err := url.PathUnescape(path); err == nil {
		opts.Path = decoded
	}

	if !hasQuery || query == "" {
		opts.Original = true
		return opts
	}

	for _, pair := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			continue
		}
		switch key {
		case "width":
			opts.Width = parseDimension(value, opts.Width)
		case "height":
			opts.Height = parseDimension(value, opts.Height)
		case "shortSide":
			opts.ShortSide = parseDimension(value, opts.ShortSide)
		case "longSide":
			opts.LongSide = parseDimension(value, opts.LongSide)
		case "format":
			if f, ok := ParseFormat(value); ok {
				opts.Format = f
			}
		case "crop":
			if c, ok := ParseCropStrategy(value); ok {
				opts.Crop = c
			}
		case "cropSmartBoost":
			opts.Boost = parseBoost(value)
		case "quality":
			if q, ok := ParseQualityTier(value); ok {
				opts.Quality = q
			}
		case "density":
			if d, err := strconv.ParseFloat(value, 64); err == nil &&
				d >= DensityMin && d <= DensityMax {
				opts.Density = d
			}
		}
	}
	return opts
}

// parseDimension accepts integers strictly inside (0, DimensionLimit);
// anything else keeps the fallback.
func parseDimension(value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 || n >= DimensionLimit {
		return fallback
	}
	return n
}

// parseBoost reads a comma-separated x,y,width,height quadruple.  Missing or
// malformed components default to 0; the weight is fixed at 1.  A zero-area
// region yields no boost.
func parseBoost(value string) *BoostRegion {
	parts := strings.Split(value, ",")
	quad := [4]int{}
	for i := 0; i < len(parts) && i < 4; i++ {
		if n, err := strconv.Atoi(parts[i]); err == nil && n > 0 {
			quad[i] = n
		}
	}
	boost := &BoostRegion{
		Rect:   Rect{X: quad[0], Y: quad[1], Width: quad[2], Height: quad[3]},
		Weight: 1,
	}
	if boost.Empty() {
		return nil
	}
	return boost
}
