package shader

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultNormalStep is the neighbour distance of the normal taps in texels.
const DefaultNormalStep float32 = 30

// Pseudo-depth applied to the reconstructed normal: depth = height*scale+bias,
// mixed with the normal's Z by depthMix.
const (
	depthScale float32 = 2.5
	depthBias  float32 = -1
	depthMix   float32 = 0.5
)

// FlatNormal is substituted when the blended normal faces away.
var FlatNormal = mgl32.Vec3{1, 1, 1}

// HeightEncoder reconstructs a surface normal from the thresholded ink
// height and writes it in normal-map encoding.
type HeightEncoder struct{}

// Name implements Program.
func (HeightEncoder) Name() string { return "height-normal" }

// Source implements Program.
func (HeightEncoder) Source() string { return normalSource }

// Shade implements Program. The four taps read the raw red channel of the
// input so the gradient follows the blurred falloff; the pseudo-depth uses
// the thresholded height.
func (HeightEncoder) Shade(u *Uniforms, f Fragment) mgl32.Vec4 {
	in := u.Input
	if in == nil || u.Resolution[0] <= 0 || u.Resolution[1] <= 0 {
		return PackNormal(FlatNormal)
	}

	uv := f.UV
	height := Threshold(in.Sample(uv[0], uv[1]).Vec3(), u.Threshold)

	tx := u.Step / u.Resolution[0]
	ty := u.Step / u.Resolution[1]
	left := in.Sample(uv[0]-tx, uv[1])[0]
	right := in.Sample(uv[0]+tx, uv[1])[0]
	up := in.Sample(uv[0], uv[1]-ty)[0]
	down := in.Sample(uv[0], uv[1]+ty)[0]

	return PackNormal(ReconstructNormal(left, right, up, down, height, tx, ty))
}

// ReconstructNormal estimates the normal from four neighbour heights taken
// tx/ty apart and blends its Z with the pseudo-depth of height. The result is
// FlatNormal whenever the blended Z is not positive.
//
// The height differences sit in the first two components of the tangents and
// the tap spacing in the third, so a horizontal slope bends the normal's Y and
// the cross product's Z is the product of both slopes.
func ReconstructNormal(left, right, up, down, height, tx, ty float32) mgl32.Vec3 {
	dx := mgl32.Vec3{right - left, 0, 2 * tx}
	dy := mgl32.Vec3{0, down - up, 2 * ty}

	n := dx.Cross(dy)
	if l := n.Len(); l > 0 {
		n = n.Mul(1 / l)
	}

	depth := height*depthScale + depthBias
	z := n[2]*(1-depthMix) + depth*depthMix
	if !(z > 0) || math32.IsNaN(n[0]) || math32.IsNaN(n[1]) {
		return FlatNormal
	}
	return mgl32.Vec3{n[0], n[1], z}
}

// PackNormal encodes n into [0, 1] with alpha 1.
func PackNormal(n mgl32.Vec3) mgl32.Vec4 {
	return mgl32.Vec4{n[0]*0.5 + 0.5, n[1]*0.5 + 0.5, n[2]*0.5 + 0.5, 1}
}

// UnpackNormal reverses PackNormal.
func UnpackNormal(c mgl32.Vec4) mgl32.Vec3 {
	return mgl32.Vec3{c[0]*2 - 1, c[1]*2 - 1, c[2]*2 - 1}
}
