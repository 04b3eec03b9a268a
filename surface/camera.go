package surface

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera defaults.
const (
	DefaultFOV      = 50
	DefaultNear     = 0.001
	DefaultFar      = 200
	DefaultDistance = 2.15

	minPolar    = 0.01
	maxPolar    = math32.Pi - 0.01
	minDistance = 0.25
	maxDistance = 50
)

// Camera is a perspective camera orbiting a target point. Its state
// persists across frames; only Orbit, Zoom and SetAspect change it.
type Camera struct {
	FOV       float32 // vertical, degrees
	Near, Far float32
	Target    mgl32.Vec3
	aspect    float32
	distance  float32
	azimuth   float32 // around +Y, 0 looks down -Z
	polar     float32 // from +Y
}

// NewCamera returns a camera on the +Z axis looking at the origin.
func NewCamera(aspect float32) *Camera {
	return &Camera{
		FOV:      DefaultFOV,
		Near:     DefaultNear,
		Far:      DefaultFar,
		aspect:   aspect,
		distance: DefaultDistance,
		polar:    math32.Pi / 2,
	}
}

// Aspect returns the width to height ratio.
func (c *Camera) Aspect() float32 { return c.aspect }

// SetAspect sets the width to height ratio of the projection.
func (c *Camera) SetAspect(aspect float32) {
	if aspect > 0 {
		c.aspect = aspect
	}
}

// Distance returns the distance to the target.
func (c *Camera) Distance() float32 { return c.distance }

// Orbit rotates the camera around the target by the given angles in
// radians. The polar angle stays clear of the poles.
func (c *Camera) Orbit(dAzimuth, dPolar float32) {
	c.azimuth = math32.Mod(c.azimuth+dAzimuth, 2*math32.Pi)
	c.polar = mgl32.Clamp(c.polar+dPolar, minPolar, maxPolar)
}

// Zoom scales the distance to the target. Factors below 1 move closer.
func (c *Camera) Zoom(factor float32) {
	if factor > 0 {
		c.distance = mgl32.Clamp(c.distance*factor, minDistance, maxDistance)
	}
}

// Position returns the eye position in world space.
func (c *Camera) Position() mgl32.Vec3 {
	s := math32.Sin(c.polar)
	offset := mgl32.Vec3{
		s * math32.Sin(c.azimuth),
		math32.Cos(c.polar),
		s * math32.Cos(c.azimuth),
	}
	return c.Target.Add(offset.Mul(c.distance))
}

// View returns the world to camera transform.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, mgl32.Vec3{0, 1, 0})
}

// Projection returns the perspective projection.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.aspect, c.Near, c.Far)
}

// Ray returns the world-space ray through a point in normalized device
// coordinates (x right, y up, both in [-1, 1]). dir is unit length.
func (c *Camera) Ray(ndcX, ndcY float32) (origin, dir mgl32.Vec3) {
	origin = c.Position()
	forward := c.Target.Sub(origin).Normalize()
	right := forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	up := right.Cross(forward)

	tanHalf := math32.Tan(mgl32.DegToRad(c.FOV) / 2)
	dir = forward.
		Add(right.Mul(ndcX * tanHalf * c.aspect)).
		Add(up.Mul(ndcY * tanHalf))
	return origin, dir.Normalize()
}
