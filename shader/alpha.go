package shader

import "github.com/go-gl/mathgl/mgl32"

// AlphaMask writes the thresholded ink mask as an opaque gray value.
type AlphaMask struct{}

// Name implements Program.
func (AlphaMask) Name() string { return "alpha-mask" }

// Source implements Program.
func (AlphaMask) Source() string { return alphaSource }

// Shade implements Program.
func (AlphaMask) Shade(u *Uniforms, f Fragment) mgl32.Vec4 {
	if u.Input == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	v := Threshold(u.Input.Sample(f.UV[0], f.UV[1]).Vec3(), u.Threshold)
	return mgl32.Vec4{v, v, v, 1}
}
