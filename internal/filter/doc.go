// Package filter implements the separable blur used to soften the ink
// raster and to prefilter light probes.
//
// Two kernels are available:
//   - an exact Gaussian convolution, used for small radii
//   - three successive box passes, used once the Gaussian kernel grows past
//     boxThreshold taps; cost per pixel is then independent of the radius
//
// Both run horizontally then vertically with clamp-to-edge sampling, and
// the output always has the dimensions of the input.
package filter
