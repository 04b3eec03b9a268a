// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/relief/texture"
)

// Target defines where a pass writes. Every target is also a sampler so that
// a later pass (or material) can read what an earlier one produced.
type Target interface {
	texture.Sampler

	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// Resize reallocates the target. Contents are not preserved.
	Resize(width, height int)

	// Store writes one shaded pixel. Implementations may clamp or quantize.
	Store(x, y int, c mgl32.Vec4)
}

// PixmapTarget is an 8-bit RGBA target backed by *image.RGBA.
// Stored colors are clamped to [0, 1] and rounded.
type PixmapTarget struct {
	tex *texture.Image
}

// NewPixmapTarget creates an RGBA8 target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{tex: texture.NewImage(width, height)}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int { return t.tex.RGBA().Bounds().Dx() }

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int { return t.tex.RGBA().Bounds().Dy() }

// Size implements texture.Sampler.
func (t *PixmapTarget) Size() (int, int) { return t.tex.Size() }

// Format returns the pixel format (RGBA8).
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Image returns the underlying *image.RGBA. It shares memory with the
// target and is replaced by Resize.
func (t *PixmapTarget) Image() *image.RGBA { return t.tex.RGBA() }

// Pixels returns direct access to the pixel data.
func (t *PixmapTarget) Pixels() []byte { return t.tex.RGBA().Pix }

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int { return t.tex.RGBA().Stride }

// Sample implements texture.Sampler.
func (t *PixmapTarget) Sample(u, v float32) mgl32.Vec4 { return t.tex.Sample(u, v) }

// Store implements Target.
func (t *PixmapTarget) Store(x, y int, c mgl32.Vec4) {
	img := t.tex.RGBA()
	i := y*img.Stride + x*4
	p := img.Pix[i : i+4 : i+4]
	p[0] = quantize(c[0])
	p[1] = quantize(c[1])
	p[2] = quantize(c[2])
	p[3] = quantize(c[3])
}

// Clear fills the entire target with c.
func (t *PixmapTarget) Clear(c color.Color) {
	r, g, b, a := c.RGBA()
	//nolint:gosec // G115: 16-bit channels shifted into 8 bits
	rgba := [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	pix := t.tex.RGBA().Pix
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:i+4], rgba[:])
	}
}

// Resize implements Target.
func (t *PixmapTarget) Resize(width, height int) {
	t.tex = texture.NewImage(width, height)
}

// FloatTarget is a linear HDR target used between post passes.
type FloatTarget struct {
	tex *texture.Float
}

// NewFloatTarget creates an RGBA float target.
func NewFloatTarget(width, height int) *FloatTarget {
	return &FloatTarget{tex: texture.NewFloat(width, height)}
}

// Width returns the target width in pixels.
func (t *FloatTarget) Width() int { return t.tex.Width }

// Height returns the target height in pixels.
func (t *FloatTarget) Height() int { return t.tex.Height }

// Size implements texture.Sampler.
func (t *FloatTarget) Size() (int, int) { return t.tex.Size() }

// Format returns the pixel format (RGBA32Float).
func (t *FloatTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA32Float
}

// Texture returns the backing float texture.
func (t *FloatTarget) Texture() *texture.Float { return t.tex }

// Sample implements texture.Sampler.
func (t *FloatTarget) Sample(u, v float32) mgl32.Vec4 { return t.tex.Sample(u, v) }

// Store implements Target.
func (t *FloatTarget) Store(x, y int, c mgl32.Vec4) { t.tex.Set(x, y, c) }

// Resize implements Target.
func (t *FloatTarget) Resize(width, height int) {
	t.tex = texture.NewFloat(width, height)
}

func quantize(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

var (
	_ Target = (*PixmapTarget)(nil)
	_ Target = (*FloatTarget)(nil)
)
