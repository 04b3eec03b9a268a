package shader

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	fxaaReduceMin float32 = 1.0 / 128
	fxaaReduceMul float32 = 1.0 / 8
	fxaaSpanMax   float32 = 8
)

var lumaWeights = mgl32.Vec3{0.299, 0.587, 0.114}

// FXAA is the fast approximate anti-aliasing pass. It depends on
// Uniforms.Resolution, which must track the buffer size.
type FXAA struct{}

// Name implements Program.
func (FXAA) Name() string { return "fxaa" }

// Source implements Program.
func (FXAA) Source() string { return fxaaSource }

// Shade implements Program.
func (FXAA) Shade(u *Uniforms, f Fragment) mgl32.Vec4 {
	in := u.Input
	if in == nil {
		return mgl32.Vec4{}
	}
	if u.Resolution[0] <= 0 || u.Resolution[1] <= 0 {
		return in.Sample(f.UV[0], f.UV[1])
	}

	rx, ry := 1/u.Resolution[0], 1/u.Resolution[1]
	uv := f.UV
	at := func(dx, dy float32) mgl32.Vec4 {
		return in.Sample(uv[0]+dx, uv[1]+dy)
	}

	m := at(0, 0)
	lumaNW := at(-rx, -ry).Vec3().Dot(lumaWeights)
	lumaNE := at(rx, -ry).Vec3().Dot(lumaWeights)
	lumaSW := at(-rx, ry).Vec3().Dot(lumaWeights)
	lumaSE := at(rx, ry).Vec3().Dot(lumaWeights)
	lumaM := m.Vec3().Dot(lumaWeights)

	lumaMin := math32.Min(lumaM, math32.Min(math32.Min(lumaNW, lumaNE), math32.Min(lumaSW, lumaSE)))
	lumaMax := math32.Max(lumaM, math32.Max(math32.Max(lumaNW, lumaNE), math32.Max(lumaSW, lumaSE)))

	dirX := -((lumaNW + lumaNE) - (lumaSW + lumaSE))
	dirY := (lumaNW + lumaSW) - (lumaNE + lumaSE)

	reduce := math32.Max((lumaNW+lumaNE+lumaSW+lumaSE)*(0.25*fxaaReduceMul), fxaaReduceMin)
	rcpDirMin := 1 / (math32.Min(math32.Abs(dirX), math32.Abs(dirY)) + reduce)
	dirX = mgl32.Clamp(dirX*rcpDirMin, -fxaaSpanMax, fxaaSpanMax) * rx
	dirY = mgl32.Clamp(dirY*rcpDirMin, -fxaaSpanMax, fxaaSpanMax) * ry

	a := at(dirX*(1.0/3-0.5), dirY*(1.0/3-0.5)).Vec3().
		Add(at(dirX*(2.0/3-0.5), dirY*(2.0/3-0.5)).Vec3()).Mul(0.5)
	b := a.Mul(0.5).Add(at(-dirX*0.5, -dirY*0.5).Vec3().
		Add(at(dirX*0.5, dirY*0.5).Vec3()).Mul(0.25))

	lumaB := b.Dot(lumaWeights)
	if lumaB < lumaMin || lumaB > lumaMax {
		return a.Vec4(m[3])
	}
	return b.Vec4(m[3])
}
