// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render executes full-viewport passes into render targets.
//
// # Core Types
//
//   - Target: a render destination that can also be sampled by later passes
//   - Drawable: anything that shades a fragment (materials, the surface)
//   - Renderer: runs a Drawable over every pixel of a Target
//   - Compositor: the two offscreen passes producing the normal and alpha maps
//   - PostChain: scene → anti-aliasing → exposure/tone map → screen
//
// # Frame Ordering
//
// Within a frame the Compositor completes both of its passes before the
// PostChain runs, so the surface always reads a normal map and an alpha map
// produced from the same input texture.
//
// # Thread Safety
//
// Compositor and PostChain are not safe for concurrent use; the caller
// serializes Render and Resize. SoftwareRenderer parallelizes a single draw
// internally.
package render
