// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/shader"
	"github.com/gogpu/relief/texture"
)

// Pass is one stage of a PostChain.
type Pass interface {
	// Name identifies the pass in errors.
	Name() string

	// Render writes dst. src is the previous pass output, nil for the first.
	Render(r Renderer, dst Target, src texture.Sampler) error

	// Resize updates resolution dependent state to the buffer size.
	Resize(width, height int)
}

// ScenePass renders a Drawable, ignoring its input.
type ScenePass struct {
	Scene Drawable
}

// Name implements Pass.
func (p *ScenePass) Name() string { return "scene" }

// Render implements Pass.
func (p *ScenePass) Render(r Renderer, dst Target, _ texture.Sampler) error {
	return r.Draw(dst, p.Scene)
}

// Resize implements Pass.
func (p *ScenePass) Resize(int, int) {}

// ShaderPass runs a material with the previous output bound as its input.
type ShaderPass struct {
	Material *shader.Material
}

// NewShaderPass creates a pass for program p.
func NewShaderPass(p shader.Program) *ShaderPass {
	return &ShaderPass{Material: shader.NewMaterial(p)}
}

// Name implements Pass.
func (p *ShaderPass) Name() string { return p.Material.Program.Name() }

// Render implements Pass.
func (p *ShaderPass) Render(r Renderer, dst Target, src texture.Sampler) error {
	if src == nil {
		return ErrNoInput
	}
	p.Material.Uniforms.Input = src
	return r.Draw(dst, p.Material)
}

// Resize implements Pass.
func (p *ShaderPass) Resize(width, height int) {
	p.Material.Uniforms.Resolution = mgl32.Vec2{float32(width), float32(height)}
}

// PostChain runs the fixed pass order scene → FXAA → exposure/tone map. The
// last pass writes the screen target; earlier passes ping-pong between two
// HDR buffers.
type PostChain struct {
	scene   *ScenePass
	fxaa    *ShaderPass
	tonemap *ShaderPass
	passes  []Pass

	read, write *FloatTarget
	screen      *PixmapTarget

	width, height int
	ratio         float64
}

// NewPostChain creates a chain for a width x height viewport rendered at
// pixel ratio ratio.
func NewPostChain(width, height int, ratio float64) (*PostChain, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	if !(ratio > 0) {
		ratio = 1
	}

	p := &PostChain{
		scene:   &ScenePass{},
		fxaa:    NewShaderPass(shader.FXAA{}),
		tonemap: NewShaderPass(shader.ExposureToneMap{}),
		read:    NewFloatTarget(1, 1),
		write:   NewFloatTarget(1, 1),
		screen:  NewPixmapTarget(1, 1),
		width:   width,
		height:  height,
		ratio:   ratio,
	}
	p.passes = []Pass{p.scene, p.fxaa, p.tonemap}
	p.allocate()
	return p, nil
}

// Render draws scene through the chain with the given exposure.
func (p *PostChain) Render(r Renderer, scene Drawable, exposure float32) error {
	if scene == nil {
		return ErrNilDrawable
	}
	p.scene.Scene = scene
	p.tonemap.Material.Uniforms.Exposure = exposure

	var src texture.Sampler
	for i, pass := range p.passes {
		last := i == len(p.passes)-1

		var dst Target = p.write
		if last {
			dst = p.screen
		}
		if err := pass.Render(r, dst, src); err != nil {
			return fmt.Errorf("render: %s pass: %w", pass.Name(), err)
		}
		if !last {
			p.read, p.write = p.write, p.read
			src = p.read
		}
	}
	return nil
}

// Resize sets a new viewport size. Buffers are reallocated at the physical
// size and every pass receives the new resolution.
func (p *PostChain) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	p.width, p.height = width, height
	p.allocate()
	return nil
}

// SetPixelRatio changes the physical resolution. It reallocates only when
// the physical size changes.
func (p *PostChain) SetPixelRatio(ratio float64) {
	if !(ratio > 0) || ratio == p.ratio {
		return
	}
	oldW, oldH := p.Resolution()
	p.ratio = ratio
	if w, h := p.Resolution(); w != oldW || h != oldH {
		p.allocate()
	}
}

func (p *PostChain) allocate() {
	w, h := p.Resolution()
	p.read.Resize(w, h)
	p.write.Resize(w, h)
	p.screen.Resize(w, h)
	for _, pass := range p.passes {
		pass.Resize(w, h)
	}
}

// Size returns the logical viewport size.
func (p *PostChain) Size() (int, int) { return p.width, p.height }

// PixelRatio returns the current pixel ratio.
func (p *PostChain) PixelRatio() float64 { return p.ratio }

// Resolution returns the physical buffer size.
func (p *PostChain) Resolution() (int, int) {
	return physical(p.width, p.ratio), physical(p.height, p.ratio)
}

// AAResolution returns the resolution uniform of the anti-aliasing pass.
func (p *PostChain) AAResolution() mgl32.Vec2 {
	return p.fxaa.Material.Uniforms.Resolution
}

// Screen returns the final sRGB target.
func (p *PostChain) Screen() *PixmapTarget { return p.screen }

func physical(n int, ratio float64) int {
	return max(1, int(math.Round(float64(n)*ratio)))
}
