package core

// ResolveDimensions derives the final output size from parsed options and the
// intrinsic source geometry.  Resolution order:
//
//  1. shortSide binds to whichever axis is geometrically shorter in the
//     source; longSide (considered only when shortSide is absent) binds to
//     the longer axis.
//  2. With no dimension directive at all, the source size is copied verbatim.
//  3. A single set axis derives the other from the source aspect ratio,
//     truncated toward zero.
//  4. Density multiplies every resolved dimension, truncated toward zero.
//     It must run after derivation or the aspect-ratio math breaks.
//
// Original-passthrough requests are returned untouched.
func ResolveDimensions(opts Options, srcWidth, srcHeight int) Options {
	if opts.Original || srcWidth <= 0 || srcHeight <= 0 {
		return opts
	}

	if opts.ShortSide > 0 {
		if srcWidth <= srcHeight {
			opts.Width = opts.ShortSide
		} else {
			opts.Height = opts.ShortSide
		}
	} else if opts.LongSide > 0 {
		if srcWidth >= srcHeight {
			opts.Width = opts.LongSide
		} else {
			opts.Height = opts.LongSide
		}
	}

	switch {
	case opts.Width == 0 && opts.Height == 0:
		opts.Width, opts.Height = srcWidth, srcHeight
	case opts.Height == 0:
		opts.Height = opts.Width * srcHeight / srcWidth
	case opts.Width == 0:
		opts.Width = opts.Height * srcWidth / srcHeight
	}

	if opts.Density != 1.0 {
		opts.Width = scaleDim(opts.Width, opts.Density)
		opts.Height = scaleDim(opts.Height, opts.Density)
		opts.ShortSide = scaleDim(opts.ShortSide, opts.Density)
		opts.LongSide = scaleDim(opts.LongSide, opts.Density)
	}
	return opts
}

func scaleDim(v int, density float64) int {
	return int(float64(v) * density)
}
