package envmap

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/texture"
)

// softbox is a rectangular area light in equirectangular angles (radians).
type softbox struct {
	azimuth, elevation float32
	halfW, halfH       float32
	radiance           float32
}

var studioLights = []softbox{
	{azimuth: math32.Pi / 2, elevation: 0.5, halfW: 0.45, halfH: 0.25, radiance: 12},
	{azimuth: -math32.Pi / 4, elevation: 0.9, halfW: 0.3, halfH: 0.2, radiance: 6},
	{azimuth: math32.Pi, elevation: 0.2, halfW: 0.6, halfH: 0.1, radiance: 3},
}

// Studio renders a procedural studio environment: a dim gradient from
// floor to ceiling with a few bright rectangular softboxes. It stands in
// for a light probe file.
func Studio(width, height int) *texture.Float {
	f := texture.NewFloat(width, height)
	floor := mgl32.Vec3{0.02, 0.02, 0.025}
	ceiling := mgl32.Vec3{0.25, 0.26, 0.3}
	for y := range height {
		v := (float32(y) + 0.5) / float32(height)
		elevation := (0.5 - v) * math32.Pi
		t := mgl32.Clamp(elevation/math32.Pi+0.5, 0, 1)
		base := floor.Mul(1 - t).Add(ceiling.Mul(t))
		for x := range width {
			u := (float32(x) + 0.5) / float32(width)
			azimuth := (u - 0.5) * 2 * math32.Pi
			c := base
			for _, l := range studioLights {
				if math32.Abs(angleDiff(azimuth, l.azimuth)) < l.halfW &&
					math32.Abs(elevation-l.elevation) < l.halfH {
					c = c.Add(mgl32.Vec3{l.radiance, l.radiance, l.radiance})
				}
			}
			f.Set(x, y, c.Vec4(1))
		}
	}
	return f
}

func angleDiff(a, b float32) float32 {
	d := math32.Mod(a-b+math32.Pi, 2*math32.Pi)
	if d < 0 {
		d += 2 * math32.Pi
	}
	return d - math32.Pi
}
