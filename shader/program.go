package shader

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/texture"
)

// Fragment identifies the pixel being shaded.
type Fragment struct {
	X, Y int

	// UV is the texel center in texture space, v pointing down.
	UV mgl32.Vec2
}

// Uniforms is the bindable uniform set shared by the full-viewport programs.
// Owners mutate it in place between frames; programs only read it.
type Uniforms struct {
	// Input is the texture the pass reads. Reassigned, never written.
	Input texture.Sampler

	// Resolution is the pass target size in pixels.
	Resolution mgl32.Vec2

	// Threshold is the ink cutoff used by HeightEncoder and AlphaMask.
	Threshold float32

	// Step is the neighbour distance, in texels, of the normal taps.
	Step float32

	// Exposure scales scene color before tone mapping.
	Exposure float32
}

// UniformSize is the byte size of the packed uniform block.
const UniformSize = 32

// Bytes packs the scalar uniforms in the std140 layout the WGSL sources
// declare: resolution, threshold, step, exposure, padding.
func (u *Uniforms) Bytes() []byte {
	buf := make([]byte, UniformSize)
	vals := [...]float32{u.Resolution[0], u.Resolution[1], u.Threshold, u.Step, u.Exposure}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Program is a compiled per-pixel function with a bindable uniform set.
type Program interface {
	// Name identifies the program in logs and GPU labels.
	Name() string

	// Source returns the WGSL text of the program.
	Source() string

	// Shade returns the output color of one fragment.
	Shade(u *Uniforms, frag Fragment) mgl32.Vec4
}

// Material binds a program to the uniform values of one pass.
// Materials reference textures; they never own them.
type Material struct {
	Program  Program
	Uniforms Uniforms
}

// NewMaterial creates a material for p with the default uniform values.
func NewMaterial(p Program) *Material {
	return &Material{
		Program: p,
		Uniforms: Uniforms{
			Threshold: DefaultThreshold,
			Step:      DefaultNormalStep,
			Exposure:  1,
		},
	}
}

// Shade evaluates the material's program for frag.
func (m *Material) Shade(frag Fragment) mgl32.Vec4 {
	return m.Program.Shade(&m.Uniforms, frag)
}

// Programs returns one instance of every program, in pipeline order.
func Programs() []Program {
	return []Program{HeightEncoder{}, AlphaMask{}, FXAA{}, ExposureToneMap{}}
}
