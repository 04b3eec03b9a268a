// Package shader defines the per-pixel programs of the relief pipeline.
//
// A Program is a pure function of a fragment and a bound uniform set. Each
// program carries its WGSL source as data so a GPU backend can compile the
// same pass it evaluates on the CPU. The programs are:
//
//	HeightEncoder   thresholded height → packed tangent-space normal
//	AlphaMask       thresholded height → opacity mask
//	FXAA            image-space anti-aliasing of the scene buffer
//	ExposureToneMap exposure, ACES filmic curve and sRGB encoding
package shader
