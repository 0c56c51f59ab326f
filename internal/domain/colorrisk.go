package domain

import "math"

// EstimateColorRisk maps an averaged RGB sample (0-255 per channel) to a
// 0-100 risk score using hazard-map colour conventions.
//
// Hue bands (h in [0,1)):
//
//	red/pink  h<0.05 or h>0.95   100 → 85 as the hue moves away from pure red
//	orange    h<0.12             85 → 70
//	yellow    h<0.20             70 → 45
//	green     h<0.45             45 → 15
//	blue      h<0.75             15 → 5
//	purple    h<=0.95            90 → 100
//
// Dark samples (lightness < 0.3) add 15, capped at 100. Achromatic samples
// have hue 0 and therefore fall in the red band.
func EstimateColorRisk(r, g, b float64) int {
	h, l := hueLightness(r, g, b)

	var risk float64
	switch {
	case h < 0.05:
		risk = 100 - h/0.05*15
	case h > 0.95:
		risk = 100 - (1-h)/0.05*15
	case h < 0.12:
		risk = 85 - (h-0.05)/0.07*15
	case h < 0.20:
		risk = 70 - (h-0.12)/0.08*25
	case h < 0.45:
		risk = 45 - (h-0.20)/0.25*30
	case h < 0.75:
		risk = 15 - (h-0.45)/0.30*10
	default:
		risk = 90 + (h-0.75)/0.20*10
	}

	if l < 0.3 {
		risk = math.Min(risk+15, 100)
	}

	return clampInt(int(math.Round(risk)), 0, 100)
}

// hueLightness is the standard RGB→HSL derivation without saturation.
func hueLightness(r, g, b float64) (h, l float64) {
	r, g, b = r/255, g/255, b/255
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l = (maxC + minC) / 2

	if maxC == minC {
		return 0, l
	}

	d := maxC - minC
	switch maxC {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, l
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
