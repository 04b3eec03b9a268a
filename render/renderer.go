// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/shader"
)

// Errors returned by renderers and pass owners.
var (
	// ErrNilTarget is returned when a draw has no destination.
	ErrNilTarget = errors.New("render: nil target")

	// ErrNilDrawable is returned when a draw has nothing to shade.
	ErrNilDrawable = errors.New("render: nil drawable")

	// ErrInvalidSize is returned for non-positive target dimensions.
	ErrInvalidSize = errors.New("render: invalid target size")

	// ErrNoInput is returned when a pass has no input texture bound yet.
	ErrNoInput = errors.New("render: no input texture")
)

// Drawable shades fragments of a full-viewport quad.
type Drawable interface {
	Shade(frag shader.Fragment) mgl32.Vec4
}

// DrawableFunc adapts a function to Drawable.
type DrawableFunc func(frag shader.Fragment) mgl32.Vec4

// Shade implements Drawable.
func (f DrawableFunc) Shade(frag shader.Fragment) mgl32.Vec4 { return f(frag) }

// Renderer draws a full-viewport quad into a target.
//
// Draw returns after every pixel of target has been written, so a following
// draw may sample target.
type Renderer interface {
	Draw(target Target, d Drawable) error
}

var _ Drawable = (*shader.Material)(nil)
