// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/shader"
	"github.com/gogpu/relief/texture"
)

// Scene is the offscreen scene: a single full-viewport quad drawn with its
// own material unless Override is set.
type Scene struct {
	Quad     *shader.Material
	Override *shader.Material
}

// Active returns the material the next draw uses.
func (s *Scene) Active() *shader.Material {
	if s.Override != nil {
		return s.Override
	}
	return s.Quad
}

// Compositor produces the normal map and the alpha map from one shared input
// texture. It owns both targets and resizes them together.
type Compositor struct {
	normal *PixmapTarget
	alpha  *PixmapTarget

	normalMaterial *shader.Material
	alphaMaterial  *shader.Material
	scene          Scene
}

// NewCompositor creates the two offscreen targets at the viewport size.
func NewCompositor(width, height int) (*Compositor, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	c := &Compositor{
		normal:         NewPixmapTarget(width, height),
		alpha:          NewPixmapTarget(width, height),
		normalMaterial: shader.NewMaterial(shader.HeightEncoder{}),
		alphaMaterial:  shader.NewMaterial(shader.AlphaMask{}),
	}
	c.scene.Quad = c.normalMaterial
	c.setResolution(width, height)
	return c, nil
}

// SetInput binds the shared input texture to both materials. Passing nil
// unbinds it; Render then reports ErrNoInput.
func (c *Compositor) SetInput(in texture.Sampler) {
	c.normalMaterial.Uniforms.Input = in
	c.alphaMaterial.Uniforms.Input = in
}

// SetThreshold updates the ink cutoff of both materials.
func (c *Compositor) SetThreshold(t float32) {
	c.normalMaterial.Uniforms.Threshold = t
	c.alphaMaterial.Uniforms.Threshold = t
}

// SetNormalStep updates the texel distance of the normal taps.
func (c *Compositor) SetNormalStep(step float32) {
	c.normalMaterial.Uniforms.Step = step
}

// Render runs the normal pass, then the alpha pass. Both targets are fully
// overwritten before Render returns.
func (c *Compositor) Render(r Renderer) error {
	if c.normalMaterial.Uniforms.Input == nil {
		return ErrNoInput
	}

	c.scene.Override = nil
	if err := r.Draw(c.normal, c.scene.Active()); err != nil {
		return err
	}

	c.scene.Override = c.alphaMaterial
	defer func() { c.scene.Override = nil }()
	return r.Draw(c.alpha, c.scene.Active())
}

// Resize resizes both targets to the new viewport. Invalid sizes leave both
// untouched.
func (c *Compositor) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	c.normal.Resize(width, height)
	c.alpha.Resize(width, height)
	c.setResolution(width, height)
	return nil
}

func (c *Compositor) setResolution(width, height int) {
	res := mgl32.Vec2{float32(width), float32(height)}
	c.normalMaterial.Uniforms.Resolution = res
	c.alphaMaterial.Uniforms.Resolution = res
}

// Size returns the dimensions shared by both targets.
func (c *Compositor) Size() (int, int) {
	return c.normal.Width(), c.normal.Height()
}

// NormalMap returns the normal-map target.
func (c *Compositor) NormalMap() *PixmapTarget { return c.normal }

// AlphaMap returns the alpha-map target.
func (c *Compositor) AlphaMap() *PixmapTarget { return c.alpha }

// Materials returns the normal and alpha materials, for backends that mirror
// their uniforms.
func (c *Compositor) Materials() (normal, alpha *shader.Material) {
	return c.normalMaterial, c.alphaMaterial
}
