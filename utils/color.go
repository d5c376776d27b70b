package utils

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/setanarut/mgflow"
)

// MaxMagnitude returns the largest displacement length in flow.
func MaxMagnitude(flow *mgflow.FlowField) float64 {
	return flow.Magnitude().LInfNorm()
}

// FlowColor codes one displacement on the HSV wheel: the hue is the
// direction (0 degrees along +u, 90 along +v) and the saturation is the
// length relative to scale. Zero motion is white.
func FlowColor(u, v, scale float64) colorful.Color {
	if scale <= 0 {
		return colorful.Hsv(0, 0, 1)
	}
	h := math.Atan2(v, u) * 180 / math.Pi
	if h < 0 {
		h += 360
	}
	s := min(1, math.Hypot(u, v)/scale)
	return colorful.Hsv(h, s, 1)
}

// ColorMotion inverts FlowColor.
func ColorMotion(c colorful.Color, scale float64) (u, v float64) {
	h, s, _ := c.Clamped().Hsv()
	mag := s * scale
	rad := h * math.Pi / 180
	return mag * math.Cos(rad), mag * math.Sin(rad)
}

// FlowColorImage colour codes every pixel of flow. A scale <= 0 uses the
// largest magnitude in the field, so the fastest pixel is fully saturated.
func FlowColorImage(flow *mgflow.FlowField, scale float64) *image.RGBA {
	if scale <= 0 {
		scale = MaxMagnitude(flow)
	}
	sh := flow.Shape()
	img := image.NewRGBA(image.Rect(0, 0, sh.Cols, sh.Rows))
	for i := range sh.Rows {
		for j := range sh.Cols {
			r, g, b := FlowColor(flow.U.At(i, j), flow.V.At(i, j), scale).RGB255()
			img.SetRGBA(j, i, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}
