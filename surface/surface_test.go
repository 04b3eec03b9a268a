package surface

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/envmap"
	"github.com/gogpu/relief/param"
	"github.com/gogpu/relief/shader"
	"github.com/gogpu/relief/texture"
)

func near(a, b, tol float32) bool { return math32.Abs(a-b) <= tol }

func TestCameraDefaults(t *testing.T) {
	c := NewCamera(16.0 / 9)
	pos := c.Position()
	if !near(pos[0], 0, 1e-5) || !near(pos[1], 0, 1e-5) || !near(pos[2], DefaultDistance, 1e-5) {
		t.Errorf("Position() = %v, want (0, 0, %v)", pos, DefaultDistance)
	}

	_, dir := c.Ray(0, 0)
	if !near(dir[2], -1, 1e-4) {
		t.Errorf("center ray = %v, want -Z", dir)
	}

	// The top edge of the view sits at half the vertical field of view.
	_, top := c.Ray(0, 1)
	angle := math32.Acos(top.Dot(dir))
	if !near(angle, mgl32.DegToRad(DefaultFOV/2), 1e-3) {
		t.Errorf("top ray angle = %v rad, want %v", angle, mgl32.DegToRad(DefaultFOV/2))
	}
}

func TestCameraOrbitPersists(t *testing.T) {
	c := NewCamera(1)
	c.Orbit(math32.Pi/2, 0)
	pos := c.Position()
	if !near(pos[0], DefaultDistance, 1e-4) || !near(pos[2], 0, 1e-4) {
		t.Errorf("after quarter orbit Position() = %v, want +X", pos)
	}

	c.Orbit(0, -10)
	if p := c.Position(); p[1] <= 0 || p[1] >= DefaultDistance {
		t.Errorf("polar clamp failed, Position() = %v", p)
	}

	c.Zoom(0.5)
	if !near(c.Distance(), DefaultDistance/2, 1e-5) {
		t.Errorf("Distance() = %v after Zoom(0.5)", c.Distance())
	}
	c.Zoom(1e-6)
	if c.Distance() < minDistance {
		t.Errorf("Distance() = %v below minimum", c.Distance())
	}
	c.Zoom(-1)
	if c.Distance() < minDistance {
		t.Error("negative zoom changed distance")
	}
}

func TestPlaneIntersect(t *testing.T) {
	p := PlaneFor(2)
	tests := []struct {
		name   string
		origin mgl32.Vec3
		dir    mgl32.Vec3
		uv     mgl32.Vec2
		hit    bool
	}{
		{"center", mgl32.Vec3{0, 0, 2}, mgl32.Vec3{0, 0, -1}, mgl32.Vec2{0.5, 0.5}, true},
		{"top left", mgl32.Vec3{-1.9, 0.9, 2}, mgl32.Vec3{0, 0, -1}, mgl32.Vec2{0.025, 0.05}, true},
		{"from behind", mgl32.Vec3{1, -0.5, -3}, mgl32.Vec3{0, 0, 1}, mgl32.Vec2{0.75, 0.75}, true},
		{"outside", mgl32.Vec3{5, 0, 2}, mgl32.Vec3{0, 0, -1}, mgl32.Vec2{}, false},
		{"parallel", mgl32.Vec3{0, 0, 2}, mgl32.Vec3{1, 0, 0}, mgl32.Vec2{}, false},
		{"away", mgl32.Vec3{0, 0, 2}, mgl32.Vec3{0, 0, 1}, mgl32.Vec2{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uv, hit := p.Intersect(tt.origin, tt.dir)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && (!near(uv[0], tt.uv[0], 1e-5) || !near(uv[1], tt.uv[1], 1e-5)) {
				t.Errorf("uv = %v, want %v", uv, tt.uv)
			}
		})
	}
}

func TestEnvBRDFApprox(t *testing.T) {
	// Smooth surface head-on reflects F0 almost exactly.
	scale, bias := EnvBRDFApprox(0, 1)
	if !near(scale, 1, 0.05) || !near(bias, 0, 0.05) {
		t.Errorf("EnvBRDFApprox(0, 1) = %v, %v", scale, bias)
	}
	for _, r := range []float32{0, 0.5, 1} {
		for _, nv := range []float32{0.01, 0.5, 1} {
			s, b := EnvBRDFApprox(r, nv)
			if s+b < 0 || s+b > 1.05 {
				t.Errorf("EnvBRDFApprox(%v, %v) total %v out of range", r, nv, s+b)
			}
		}
	}
}

func TestMaterialWithoutProbeIsDark(t *testing.T) {
	m := Material{Color: mgl32.Vec3{1, 1, 1}, Metalness: 1}
	if c := m.Shade(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, 1}, nil); c != (mgl32.Vec3{}) {
		t.Errorf("Shade without probe = %v, want black", c)
	}
}

func uniformFloat(w, h int, c mgl32.Vec4) *texture.Float {
	f := texture.NewFloat(w, h)
	for y := range h {
		for x := range w {
			f.Set(x, y, c)
		}
	}
	return f
}

func TestRendererReliefAndBackground(t *testing.T) {
	normal := uniformFloat(8, 8, shader.PackNormal(mgl32.Vec3{0, 0, 1}))
	alpha := uniformFloat(8, 8, mgl32.Vec4{1, 1, 1, 1})

	r := NewRenderer(NewCamera(1), normal, alpha)
	r.Background = mgl32.Vec3{0.1, 0.2, 0.3}
	p := param.Defaults()
	r.Apply(p)

	center := shader.Fragment{UV: mgl32.Vec2{0.5, 0.5}}
	if c := r.Shade(center); c != (mgl32.Vec4{0, 0, 0, 1}) {
		t.Errorf("unlit ink = %v, want black before the probe loads", c)
	}

	probe, err := envmap.NewProbe(uniformFloat(32, 16, mgl32.Vec4{1, 1, 1, 1}), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.SetProbe(probe)
	c := r.Shade(center)
	// White metal facing the eye reflects the uniform environment.
	if !near(c[0], 1, 0.05) || !near(c[1], 1, 0.05) {
		t.Errorf("lit ink = %v, want ~1", c)
	}

	// The plane is 2 units high seen from 2.15 with a 50 degree field of
	// view, so the extreme corner misses it.
	corner := shader.Fragment{UV: mgl32.Vec2{0, 0}}
	if c := r.Shade(corner); c != r.Background.Vec4(1) {
		t.Errorf("corner = %v, want background", c)
	}
}

func TestRendererAlphaCutsOut(t *testing.T) {
	normal := uniformFloat(4, 4, shader.PackNormal(shader.FlatNormal))
	alpha := uniformFloat(4, 4, mgl32.Vec4{0, 0, 0, 1})
	r := NewRenderer(NewCamera(1), normal, alpha)
	r.Background = mgl32.Vec3{0.5, 0, 0}
	probe, _ := envmap.NewProbe(uniformFloat(8, 4, mgl32.Vec4{3, 3, 3, 1}), 1, nil)
	r.SetProbe(probe)
	r.Apply(param.Defaults())

	if c := r.Shade(shader.Fragment{UV: mgl32.Vec2{0.5, 0.5}}); c != (mgl32.Vec4{0.5, 0, 0, 1}) {
		t.Errorf("masked pixel = %v, want background", c)
	}
}

func TestRendererFlatMode(t *testing.T) {
	alpha := uniformFloat(4, 4, mgl32.Vec4{1, 1, 1, 1})
	r := NewRenderer(NewCamera(1), alpha, alpha)
	p := param.Defaults()
	p.Mode = param.Mode2D
	p.BrushColor = "#ffffff"
	r.Apply(p)
	if r.Mode() != param.Mode2D {
		t.Fatalf("Mode() = %v", r.Mode())
	}
	c := r.Shade(shader.Fragment{UV: mgl32.Vec2{0.1, 0.9}})
	if !near(c[0], 1, 1e-4) || !near(c[1], 1, 1e-4) || !near(c[2], 1, 1e-4) {
		t.Errorf("flat ink = %v, want brush white", c)
	}
}

func TestSetAspectResizesPlane(t *testing.T) {
	r := NewRenderer(NewCamera(1), nil, nil)
	r.SetAspect(2.5)
	if r.Plane.Width != 5 || r.Plane.Height != 2 || r.Camera.Aspect() != 2.5 {
		t.Errorf("plane %v aspect %v after SetAspect(2.5)", r.Plane, r.Camera.Aspect())
	}
}

func TestRayMatchesProjection(t *testing.T) {
	c := NewCamera(1.6)
	c.Orbit(0.4, -0.3)
	vp := c.Projection().Mul4(c.View())

	for _, ndc := range []mgl32.Vec2{{0, 0}, {0.5, -0.25}, {-0.9, 0.8}} {
		origin, dir := c.Ray(ndc[0], ndc[1])
		p := origin.Add(dir.Mul(3))
		clip := vp.Mul4x1(p.Vec4(1))
		got := mgl32.Vec2{clip[0] / clip[3], clip[1] / clip[3]}
		if !near(got[0], ndc[0], 1e-3) || !near(got[1], ndc[1], 1e-3) {
			t.Errorf("ray through %v projects to %v", ndc, got)
		}
	}
}
