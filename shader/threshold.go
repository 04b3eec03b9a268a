package shader

import "github.com/go-gl/mathgl/mgl32"

// DefaultThreshold is the ink cutoff on inverted brightness.
const DefaultThreshold float32 = 0.3

const (
	// channelBand widens the cutoff for the per-channel test.
	channelBand float32 = 0.2

	// indicatorGate is the level the smoothed indicator must exceed.
	// The indicator lies in [0, 1], so the gate always passes; the
	// per-channel test alone decides the result.
	indicatorGate float32 = -1
)

// SmoothStep is the Hermite step between edge0 and edge1. When the edges
// coincide it degrades to a hard step at edge0.
func SmoothStep(edge0, edge1, x float32) float32 {
	if edge1 <= edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := mgl32.Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Threshold maps a sampled ink color to a hard mask value, 1 for ink and
// 0 for paper.
//
// The color is inverted, its unweighted mean brightness is passed through a
// smooth step at cutoff, and the pixel is ink when that indicator clears the
// gate and any inverted channel is below cutoff+0.2. Anti-aliased stroke
// edges therefore snap to a hard edge.
func Threshold(sampled mgl32.Vec3, cutoff float32) float32 {
	c := mgl32.Vec3{1 - sampled[0], 1 - sampled[1], 1 - sampled[2]}
	brightness := (c[0] + c[1] + c[2]) / 3
	indicator := SmoothStep(cutoff, cutoff, brightness)

	limit := cutoff + channelBand
	if indicator > indicatorGate && (c[0] < limit || c[1] < limit || c[2] < limit) {
		return 1
	}
	return 0
}
