package render

import (
	"image/color"
	"math"
)

// applyBlendMode computes the separable PDF blend modes over
// premultiplied-free NRGBA samples; unrecognized names fall back to Normal.
func applyBlendMode(mode string, backdrop, src color.NRGBA) color.NRGBA {
	if mode == "" || mode == "Normal" || mode == "Compatible" {
		return src
	}
	blend := func(cb, cs float64) float64 {
		switch mode {
		case "Multiply":
			return cb * cs
		case "Screen":
			return cb + cs - cb*cs
		case "Darken":
			return min64(cb, cs)
		case "Lighten":
			return max64(cb, cs)
		case "Difference":
			return abs64(cb - cs)
		case "Exclusion":
			return cb + cs - 2*cb*cs
		case "Overlay":
			return hardLight(cs, cb)
		case "HardLight":
			return hardLight(cb, cs)
		case "ColorDodge":
			if cb == 0 {
				return 0
			}
			if cs >= 1 {
				return 1
			}
			return min64(1, cb/(1-cs))
		case "ColorBurn":
			if cb >= 1 {
				return 1
			}
			if cs <= 0 {
				return 0
			}
			return 1 - min64(1, (1-cb)/cs)
		case "SoftLight":
			return softLight(cb, cs)
		default:
			return cs
		}
	}
	return color.NRGBA{
		R: to8(blend(from8(backdrop.R), from8(src.R))),
		G: to8(blend(from8(backdrop.G), from8(src.G))),
		B: to8(blend(from8(backdrop.B), from8(src.B))),
		A: src.A,
	}
}

func hardLight(cb, cs float64) float64 {
	if cs <= 0.5 {
		return cb * 2 * cs
	}
	return cb + (2*cs-1) - cb*(2*cs-1)
}

func softLight(cb, cs float64) float64 {
	if cs <= 0.5 {
		return cb - (1-2*cs)*cb*(1-cb)
	}
	var d float64
	if cb <= 0.25 {
		d = ((16*cb-12)*cb + 4) * cb
	} else {
		d = math.Sqrt(cb)
	}
	return cb + (2*cs-1)*(d-cb)
}

func from8(v uint8) float64 { return float64(v) / 255 }
func to8(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v*255 + 0.5)
}
func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
func abs64(a float64) float64 {
	if a < 0 {
		return -a
	}
	return a
}
