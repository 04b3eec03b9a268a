// Package texture provides the sampled images shared between pipeline
// stages and the single-producer/single-consumer slot that hands the
// blurred ink raster to the render loop.
//
// Texture coordinates follow image convention: (0, 0) is the top-left
// corner of the top-left texel and (1, 1) the bottom-right corner of the
// bottom-right texel. Sampling is bilinear with clamp-to-edge addressing.
package texture
