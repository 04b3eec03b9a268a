package surface

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/envmap"
)

// Material is the physically based surface material. Its scalar fields are
// overwritten from the parameter snapshot every frame.
type Material struct {
	Color     mgl32.Vec3 // base color, linear
	Metalness float32
	Roughness float32
}

// dielectricF0 is the normal incidence reflectance of non-metals.
const dielectricF0 = 0.04

// EnvBRDFApprox is the analytic fit of the split-sum environment BRDF for
// a given roughness and cos(N, V). It returns the scale and bias applied to
// F0.
func EnvBRDFApprox(roughness, nDotV float32) (scale, bias float32) {
	c0 := mgl32.Vec4{-1, -0.0275, -0.572, 0.022}
	c1 := mgl32.Vec4{1, 0.0425, 1.04, -0.04}
	r := c0.Mul(roughness).Add(c1)
	a004 := math32.Min(r[0]*r[0], math32.Exp2(-9.28*nDotV))*r[0] + r[1]
	return -1.04*a004 + r[2], 1.04*a004 + r[3]
}

// Shade returns the radiance leaving a point with normal n toward the eye
// along v (both unit, pointing away from the surface), lit only by probe.
// A nil probe leaves the surface black.
func (m Material) Shade(n, v mgl32.Vec3, probe *envmap.Probe) mgl32.Vec3 {
	if probe == nil {
		return mgl32.Vec3{}
	}
	nDotV := mgl32.Clamp(n.Dot(v), 1e-4, 1)
	r := n.Mul(2 * n.Dot(v)).Sub(v)

	f0 := mgl32.Vec3{dielectricF0, dielectricF0, dielectricF0}
	f0 = f0.Mul(1 - m.Metalness).Add(m.Color.Mul(m.Metalness))
	scale, bias := EnvBRDFApprox(m.Roughness, nDotV)
	specular := f0.Mul(scale).Add(mgl32.Vec3{bias, bias, bias})

	diffuse := m.Color.Mul(1 - m.Metalness)

	spec := probe.Sample(r, m.Roughness)
	irr := probe.Sample(n, 1)
	return mgl32.Vec3{
		spec[0]*specular[0] + irr[0]*diffuse[0],
		spec[1]*specular[1] + irr[1]*diffuse[1],
		spec[2]*specular[2] + irr[2]*diffuse[2],
	}
}
