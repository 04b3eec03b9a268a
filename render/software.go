// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/internal/parallel"
	"github.com/gogpu/relief/shader"
)

// SoftwareRenderer evaluates drawables on the CPU, one row band per work
// item.
type SoftwareRenderer struct {
	pool *parallel.WorkerPool
}

// NewSoftwareRenderer creates a CPU renderer. A nil pool renders on the
// calling goroutine.
func NewSoftwareRenderer(pool *parallel.WorkerPool) *SoftwareRenderer {
	return &SoftwareRenderer{pool: pool}
}

// Draw implements Renderer. Fragment UVs address texel centers.
func (r *SoftwareRenderer) Draw(target Target, d Drawable) error {
	if target == nil {
		return ErrNilTarget
	}
	if d == nil {
		return ErrNilDrawable
	}

	w, h := target.Width(), target.Height()
	if w <= 0 || h <= 0 {
		return nil
	}
	invW, invH := 1/float32(w), 1/float32(h)

	parallel.Bands(r.pool, h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			v := (float32(y) + 0.5) * invH
			for x := range w {
				frag := shader.Fragment{X: x, Y: y, UV: mgl32.Vec2{(float32(x) + 0.5) * invW, v}}
				target.Store(x, y, d.Shade(frag))
			}
		}
	})
	return nil
}

var _ Renderer = (*SoftwareRenderer)(nil)
