package shader

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ACES filmic fit. Matrices are column-major, as mgl32 and WGSL store them.
var (
	acesInput = mgl32.Mat3{
		0.59719, 0.07600, 0.02840,
		0.35458, 0.90834, 0.13383,
		0.04823, 0.01566, 0.83777,
	}
	acesOutput = mgl32.Mat3{
		1.60475, -0.10208, -0.00327,
		-0.53108, 1.10813, -0.07276,
		-0.07367, -0.00605, 1.07602,
	}
)

// ACESFilmic maps linear HDR color into [0, 1].
func ACESFilmic(c mgl32.Vec3) mgl32.Vec3 {
	c = acesInput.Mul3x1(c.Mul(1 / 0.6))
	for i, v := range c {
		a := v*(v+0.0245786) - 0.000090537
		b := v*(0.983729*v+0.4329510) + 0.238081
		c[i] = a / b
	}
	c = acesOutput.Mul3x1(c)
	return mgl32.Vec3{
		mgl32.Clamp(c[0], 0, 1),
		mgl32.Clamp(c[1], 0, 1),
		mgl32.Clamp(c[2], 0, 1),
	}
}

// LinearToSRGB applies the sRGB transfer function to one channel.
func LinearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math32.Pow(v, 1/2.4) - 0.055
}

// SRGBToLinear reverses LinearToSRGB.
func SRGBToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math32.Pow((v+0.055)/1.055, 2.4)
}

// ExposureToneMap multiplies by Uniforms.Exposure, applies the ACES filmic
// curve and encodes to sRGB for display.
type ExposureToneMap struct{}

// Name implements Program.
func (ExposureToneMap) Name() string { return "exposure-tonemap" }

// Source implements Program.
func (ExposureToneMap) Source() string { return tonemapSource }

// Shade implements Program.
func (ExposureToneMap) Shade(u *Uniforms, f Fragment) mgl32.Vec4 {
	if u.Input == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	c := u.Input.Sample(f.UV[0], f.UV[1])
	mapped := ACESFilmic(c.Vec3().Mul(u.Exposure))
	return mgl32.Vec4{
		LinearToSRGB(mapped[0]),
		LinearToSRGB(mapped[1]),
		LinearToSRGB(mapped[2]),
		mgl32.Clamp(c[3], 0, 1),
	}
}
