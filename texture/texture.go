package texture

import (
	"image"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Sampler is a read-only texture bound to a program.
type Sampler interface {
	// Size returns the texture dimensions in texels.
	Size() (width, height int)

	// Sample returns the bilinearly filtered color at (u, v).
	Sample(u, v float32) mgl32.Vec4
}

// Image is an 8-bit RGBA texture with channels in [0, 1] when sampled.
type Image struct {
	img  *image.RGBA
	refs atomic.Int32
	gen  uint64
}

// NewImage allocates a transparent black image texture.
func NewImage(width, height int) *Image {
	return &Image{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// FromRGBA wraps img without copying. img must not be modified while the
// texture is shared.
func FromRGBA(img *image.RGBA) *Image {
	return &Image{img: img}
}

// RGBA returns the backing image.
func (t *Image) RGBA() *image.RGBA { return t.img }

// Size returns the image dimensions.
func (t *Image) Size() (int, int) {
	b := t.img.Bounds()
	return b.Dx(), b.Dy()
}

// Generation returns the publish counter assigned by Slot.Publish.
func (t *Image) Generation() uint64 { return t.gen }

// Texel returns the texel at (x, y), clamped to the image.
func (t *Image) Texel(x, y int) mgl32.Vec4 {
	w, h := t.Size()
	x = clamp(x, 0, w-1)
	y = clamp(y, 0, h-1)
	i := y*t.img.Stride + x*4
	p := t.img.Pix[i : i+4 : i+4]
	return mgl32.Vec4{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

// Sample implements Sampler.
func (t *Image) Sample(u, v float32) mgl32.Vec4 {
	w, h := t.Size()
	return bilinear(t.Texel, w, h, u, v)
}

// Float is a floating point RGBA texture used for HDR buffers and probes.
type Float struct {
	Pix    []float32
	Width  int
	Height int
}

// NewFloat allocates a zeroed float texture.
func NewFloat(width, height int) *Float {
	return &Float{
		Pix:    make([]float32, width*height*4),
		Width:  width,
		Height: height,
	}
}

// Size returns the texture dimensions.
func (f *Float) Size() (int, int) { return f.Width, f.Height }

// Texel returns the texel at (x, y), clamped to the texture.
func (f *Float) Texel(x, y int) mgl32.Vec4 {
	x = clamp(x, 0, f.Width-1)
	y = clamp(y, 0, f.Height-1)
	i := (y*f.Width + x) * 4
	return mgl32.Vec4{f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]}
}

// Set stores c at (x, y). Out of range coordinates are ignored.
func (f *Float) Set(x, y int, c mgl32.Vec4) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := (y*f.Width + x) * 4
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = c[0], c[1], c[2], c[3]
}

// Sample implements Sampler.
func (f *Float) Sample(u, v float32) mgl32.Vec4 {
	return bilinear(f.Texel, f.Width, f.Height, u, v)
}

func bilinear(texel func(x, y int) mgl32.Vec4, w, h int, u, v float32) mgl32.Vec4 {
	if w <= 0 || h <= 0 {
		return mgl32.Vec4{}
	}
	px := u*float32(w) - 0.5
	py := v*float32(h) - 0.5
	fx0 := math32.Floor(px)
	fy0 := math32.Floor(py)
	tx := px - fx0
	ty := py - fy0
	x0, y0 := int(fx0), int(fy0)

	c00 := texel(x0, y0)
	c10 := texel(x0+1, y0)
	c01 := texel(x0, y0+1)
	c11 := texel(x0+1, y0+1)

	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
