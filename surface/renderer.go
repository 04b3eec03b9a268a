// Package surface renders the visible relief: a plane seen through an orbit
// camera, lit by an environment probe, with the offscreen normal map bent
// into its shading and the offscreen alpha map cutting it out.
//
// Renderer is a render.Drawable: each fragment casts a camera ray, hits the
// plane and shades the physically based material at that point. In 2D mode
// it instead shows the alpha mask flat, tinted with the brush color.
package surface

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/envmap"
	"github.com/gogpu/relief/param"
	"github.com/gogpu/relief/render"
	"github.com/gogpu/relief/shader"
	"github.com/gogpu/relief/texture"
)

// Plane is the quad the relief is mapped onto, centered on the origin in
// the XY plane and facing +Z.
type Plane struct {
	Width, Height float32
}

// PlaneFor returns the plane for a viewport aspect ratio: two units high
// and 2*aspect wide.
func PlaneFor(aspect float32) Plane {
	return Plane{Width: 2 * aspect, Height: 2}
}

// Intersect returns the texture coordinates (v pointing down) where the ray
// hits the plane, and whether it hits at all.
func (p Plane) Intersect(origin, dir mgl32.Vec3) (mgl32.Vec2, bool) {
	if dir[2] > -1e-7 && dir[2] < 1e-7 {
		return mgl32.Vec2{}, false
	}
	t := -origin[2] / dir[2]
	if t <= 0 {
		return mgl32.Vec2{}, false
	}
	hit := origin.Add(dir.Mul(t))
	u := hit[0]/p.Width + 0.5
	v := 0.5 - hit[1]/p.Height
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return mgl32.Vec2{}, false
	}
	return mgl32.Vec2{u, v}, true
}

// Renderer shades the visible scene.
type Renderer struct {
	Camera     *Camera
	Plane      Plane
	Material   Material
	Background mgl32.Vec3

	normal texture.Sampler
	alpha  texture.Sampler
	probe  atomic.Pointer[envmap.Probe]

	mode param.Mode
	tint mgl32.Vec3
}

// NewRenderer creates a renderer reading the given normal and alpha maps.
func NewRenderer(cam *Camera, normal, alpha texture.Sampler) *Renderer {
	r := &Renderer{
		Camera:   cam,
		Plane:    PlaneFor(cam.Aspect()),
		Material: Material{Color: mgl32.Vec3{1, 1, 1}, Metalness: 1},
		normal:   normal,
		alpha:    alpha,
		mode:     param.Mode3D,
	}
	return r
}

// SetMaps rebinds the normal and alpha maps.
func (r *Renderer) SetMaps(normal, alpha texture.Sampler) {
	r.normal, r.alpha = normal, alpha
}

// SetProbe installs the environment probe. It is safe to call while a
// frame is being shaded; nil removes environment lighting.
func (r *Renderer) SetProbe(p *envmap.Probe) { r.probe.Store(p) }

// Probe returns the current environment probe, nil if none.
func (r *Renderer) Probe() *envmap.Probe { return r.probe.Load() }

// SetAspect updates the camera and the plane for a new viewport aspect.
func (r *Renderer) SetAspect(aspect float32) {
	r.Camera.SetAspect(aspect)
	r.Plane = PlaneFor(aspect)
}

// Apply copies the material parameters and display mode from a snapshot.
// It is called once per frame, before shading.
func (r *Renderer) Apply(p param.Params) {
	r.Material.Metalness = float32(p.Metalness)
	r.Material.Roughness = float32(p.Roughness)
	r.mode = p.Mode
	cr, cg, cb := p.LinearBrushColor()
	r.tint = mgl32.Vec3{float32(cr), float32(cg), float32(cb)}
}

// Mode returns the display mode applied last.
func (r *Renderer) Mode() param.Mode { return r.mode }

// Shade implements render.Drawable.
func (r *Renderer) Shade(frag shader.Fragment) mgl32.Vec4 {
	if r.mode == param.Mode2D {
		return r.shadeFlat(frag.UV)
	}
	return r.shadeRelief(frag.UV)
}

func (r *Renderer) shadeRelief(screen mgl32.Vec2) mgl32.Vec4 {
	bg := r.Background.Vec4(1)
	if r.normal == nil || r.alpha == nil {
		return bg
	}
	origin, dir := r.Camera.Ray(2*screen[0]-1, 1-2*screen[1])
	uv, ok := r.Plane.Intersect(origin, dir)
	if !ok {
		return bg
	}

	alpha := r.alpha.Sample(uv[0], uv[1])[1]
	if alpha <= 0 {
		return bg
	}

	// Map texture space (y down) to the plane (y up), then face the eye.
	t := shader.UnpackNormal(r.normal.Sample(uv[0], uv[1]))
	n := mgl32.Vec3{t[0], -t[1], t[2]}
	if l := n.Len(); l > 0 {
		n = n.Mul(1 / l)
	} else {
		n = mgl32.Vec3{0, 0, 1}
	}
	if dir[2] > 0 {
		n = n.Mul(-1)
	}

	c := r.Material.Shade(n, dir.Mul(-1), r.probe.Load())
	c = c.Mul(alpha).Add(r.Background.Mul(1 - alpha))
	return c.Vec4(1)
}

func (r *Renderer) shadeFlat(screen mgl32.Vec2) mgl32.Vec4 {
	if r.alpha == nil {
		return r.Background.Vec4(1)
	}
	m := r.alpha.Sample(screen[0], screen[1])[1]
	return r.Background.Mul(1 - m).Add(r.tint.Mul(m)).Vec4(1)
}

var _ render.Drawable = (*Renderer)(nil)
