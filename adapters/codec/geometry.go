package codec

import "github.com/Skryldev/image-server/core"

// anchorOffsets places a cropW x cropH window inside a w x h image according
// to the positional strategy.  Unlisted strategies (including smart, which
// never reaches a positional crop) anchor at the center.
func anchorOffsets(strategy core.CropStrategy, w, h, cropW, cropH int) (int, int) {
	x := (w - cropW) / 2
	y := (h - cropH) / 2

	switch strategy {
	case core.CropLeft, core.CropLeftTop, core.CropLeftBottom:
		x = 0
	case core.CropRight, core.CropRightTop, core.CropRightBottom:
		x = w - cropW
	}
	switch strategy {
	case core.CropTop, core.CropLeftTop, core.CropRightTop:
		y = 0
	case core.CropBottom, core.CropLeftBottom, core.CropRightBottom:
		y = h - cropH
	}

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}
