package annoconv

// Pure bounding box geometry. Boxes are [4]float64 values of x1, y1, x2, y2
// offsets from the top-left corner, in pixels or in normalized [0,1] units
// depending on the caller.

import "math"

// ScaleBox multiplies the box bounds by independent horizontal and vertical
// scale factors.
func ScaleBox(c [4]float64, sx, sy float64) [4]float64 {
	return [4]float64{c[0] * sx, c[1] * sy, c[2] * sx, c[3] * sy}
}

// ClampBox intersects the box with the image rectangle [0,width]x[0,height].
//
// The second return value is false when the intersection is empty or
// degenerate (zero width or height); callers must drop such boxes.
func ClampBox(c [4]float64, width, height float64) ([4]float64, bool) {
	clamped := [4]float64{
		math.Max(c[0], 0),
		math.Max(c[1], 0),
		math.Min(c[2], width),
		math.Min(c[3], height),
	}
	if !ValidBox(clamped) {
		return [4]float64{}, false
	}
	return clamped, true
}

// NormalizeBox converts pixel bounds to normalized [0,1] bounds.
func NormalizeBox(c [4]float64, width, height float64) [4]float64 {
	return [4]float64{c[0] / width, c[1] / height, c[2] / width, c[3] / height}
}

// DenormalizeBox converts normalized [0,1] bounds to pixel bounds, rounding
// each value half-away-from-zero to the nearest pixel boundary.
func DenormalizeBox(c [4]float64, width, height float64) [4]float64 {
	return [4]float64{
		math.Round(c[0] * width),
		math.Round(c[1] * height),
		math.Round(c[2] * width),
		math.Round(c[3] * height),
	}
}

// ValidBox reports whether the box has positive extent on both axes and all
// four bounds are finite.
func ValidBox(c [4]float64) bool {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c[0] < c[2] && c[1] < c[3]
}
