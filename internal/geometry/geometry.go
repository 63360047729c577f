// Package geometry resolves the pixel dimensions handed to the AV1 encoder.
//
// Non-square sample aspect ratios are first expanded to square pixels, then an
// optional user bound is applied as one uniform scale factor so the result
// never exceeds either requested axis. When neither step applies the source
// dimensions pass through and no scale filter is inserted.
package geometry

import (
	"math"

	"av1clip/internal/media/ffprobe"
)

// Target is the resolved encode geometry.
type Target struct {
	Width        int
	Height       int
	NeedsScaling bool
}

// Resolve computes the output geometry from the probed stream and optional
// user bounds. A zero width or height means "not supplied". Each axis is
// rounded independently (half to even), so one-sided bounds on extreme aspect
// ratios may land a pixel away from the exact proportional size.
func Resolve(desc ffprobe.StreamDescriptor, userWidth, userHeight int) Target {
	target := Target{Width: desc.Width, Height: desc.Height}
	if target.Width <= 0 || target.Height <= 0 {
		return target
	}

	if sar := desc.SampleAspectRatio.Float(); sar > 0 && sar != 1 {
		target.NeedsScaling = true
		if sar < 1 {
			target.Height = round(float64(target.Height) / sar)
		} else {
			target.Width = round(float64(target.Width) * sar)
		}
	}

	if userWidth > 0 || userHeight > 0 {
		target.NeedsScaling = true
		width := float64(target.Width)
		height := float64(target.Height)
		wantWidth, wantHeight := width, height
		if userWidth > 0 {
			wantWidth = float64(userWidth)
		}
		if userHeight > 0 {
			wantHeight = float64(userHeight)
		}
		factor := math.Min(wantWidth/width, wantHeight/height)
		target.Width = round(width * factor)
		target.Height = round(height * factor)
	}

	return target
}

func round(v float64) int {
	return int(math.RoundToEven(v))
}
