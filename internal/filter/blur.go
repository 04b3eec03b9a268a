package filter

import (
	"errors"
	"image"
	"sync"

	"github.com/gogpu/relief/internal/parallel"
)

// boxThreshold is the largest Gaussian kernel (in taps) convolved directly.
// Wider blurs use the three-box approximation.
const boxThreshold = 31

// ErrSizeMismatch is returned when source and destination sizes differ.
var ErrSizeMismatch = errors.New("filter: source and destination sizes differ")

// Blur applies a separable Gaussian-like blur.
//
// Radius is the standard deviation in pixels, the same unit a CSS
// blur(Npx) filter uses.
type Blur struct {
	Radius float64

	// Pool runs lines in parallel. Nil runs on the caller.
	Pool *parallel.WorkerPool
}

// NewBlur creates a blur with the given radius.
func NewBlur(radius float64, pool *parallel.WorkerPool) *Blur {
	return &Blur{Radius: radius, Pool: pool}
}

// ApplyRGBA blurs src into dst. The two images must have the same size;
// dst may be src.
func (b *Blur) ApplyRGBA(src, dst *image.RGBA) error {
	sb, db := src.Bounds(), dst.Bounds()
	if sb.Dx() != db.Dx() || sb.Dy() != db.Dy() {
		return ErrSizeMismatch
	}
	w, h := sb.Dx(), sb.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	buf := getTempBuffer(w * h * 4)
	defer putTempBuffer(buf)
	scratch := getTempBuffer(w * h * 4)
	defer putTempBuffer(scratch)

	parallel.Bands(b.Pool, h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w*4]
			out := buf[y*w*4 : (y+1)*w*4]
			for i, v := range row {
				out[i] = float32(v)
			}
		}
	})

	b.run(buf, scratch, w, h)

	parallel.Bands(b.Pool, h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			in := buf[y*w*4 : (y+1)*w*4]
			row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
			for i, v := range in {
				row[i] = clampUint8(v)
			}
		}
	})
	return nil
}

// ApplyFloat blurs an interleaved RGBA float32 plane of width*height pixels
// into dst. dst may alias src.
func (b *Blur) ApplyFloat(src, dst []float32, width, height int) error {
	n := width * height * 4
	if len(src) < n || len(dst) < n {
		return ErrSizeMismatch
	}
	if n == 0 {
		return nil
	}

	buf := getTempBuffer(n)
	defer putTempBuffer(buf)
	scratch := getTempBuffer(n)
	defer putTempBuffer(scratch)

	copy(buf, src[:n])
	b.run(buf, scratch, width, height)
	copy(dst[:n], buf)
	return nil
}

// run blurs buf in place, using scratch as the intermediate plane.
func (b *Blur) run(buf, scratch []float32, w, h int) {
	if b.Radius <= 0 {
		return
	}

	if KernelSize(b.Radius) <= boxThreshold {
		kernel := CachedGaussianKernel(b.Radius)
		b.rows(buf, scratch, w, h, func(src, dst []float32, off, stride, n int) {
			convolveLine(src, dst, off, stride, n, kernel)
		})
		b.columns(scratch, buf, w, h, func(src, dst []float32, off, stride, n int) {
			convolveLine(src, dst, off, stride, n, kernel)
		})
		return
	}

	radii := BoxRadii(b.Radius, 3)
	from, to := buf, scratch
	for _, r := range radii {
		b.rows(from, to, w, h, func(src, dst []float32, off, stride, n int) {
			boxLine(src, dst, off, stride, n, r)
		})
		from, to = to, from
	}
	for _, r := range radii {
		b.columns(from, to, w, h, func(src, dst []float32, off, stride, n int) {
			boxLine(src, dst, off, stride, n, r)
		})
		from, to = to, from
	}
	if &from[0] != &buf[0] {
		copy(buf, from)
	}
}

type lineFunc func(src, dst []float32, off, stride, n int)

func (b *Blur) rows(src, dst []float32, w, h int, fn lineFunc) {
	parallel.Bands(b.Pool, h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			fn(src, dst, y*w*4, 4, w)
		}
	})
}

func (b *Blur) columns(src, dst []float32, w, h int, fn lineFunc) {
	parallel.Bands(b.Pool, w, func(lo, hi int) {
		for x := lo; x < hi; x++ {
			fn(src, dst, x*4, w*4, h)
		}
	})
}

// convolveLine convolves the n pixels at off, off+stride, ... with kernel,
// extending the edge pixels outward.
func convolveLine(src, dst []float32, off, stride, n int, kernel []float32) {
	half := len(kernel) / 2
	for i := range n {
		var r, g, b, a float32
		for k, weight := range kernel {
			j := clampInt(i+k-half, 0, n-1)
			idx := off + j*stride
			r += src[idx+0] * weight
			g += src[idx+1] * weight
			b += src[idx+2] * weight
			a += src[idx+3] * weight
		}
		idx := off + i*stride
		dst[idx+0] = r
		dst[idx+1] = g
		dst[idx+2] = b
		dst[idx+3] = a
	}
}

// boxLine applies a box of the given radius with a running sum, extending
// the edge pixels outward.
func boxLine(src, dst []float32, off, stride, n, radius int) {
	if radius <= 0 {
		for i := range n {
			idx := off + i*stride
			copy(dst[idx:idx+4], src[idx:idx+4])
		}
		return
	}

	inv := 1 / float32(2*radius+1)
	var acc [4]float32
	for j := -radius; j <= radius; j++ {
		idx := off + clampInt(j, 0, n-1)*stride
		acc[0] += src[idx+0]
		acc[1] += src[idx+1]
		acc[2] += src[idx+2]
		acc[3] += src[idx+3]
	}

	for i := range n {
		idx := off + i*stride
		dst[idx+0] = acc[0] * inv
		dst[idx+1] = acc[1] * inv
		dst[idx+2] = acc[2] * inv
		dst[idx+3] = acc[3] * inv

		in := off + clampInt(i+radius+1, 0, n-1)*stride
		out := off + clampInt(i-radius, 0, n-1)*stride
		acc[0] += src[in+0] - src[out+0]
		acc[1] += src[in+1] - src[out+1]
		acc[2] += src[in+2] - src[out+2]
		acc[3] += src[in+3] - src[out+3]
	}
}

// floatBuffer wraps a slice for sync.Pool to avoid allocation warnings.
type floatBuffer struct {
	data []float32
}

var tempBufferPool = sync.Pool{
	New: func() any { return &floatBuffer{} },
}

// getTempBuffer returns a buffer of exactly size elements. Contents are
// undefined; every caller overwrites the whole buffer.
func getTempBuffer(size int) []float32 {
	wrapper := tempBufferPool.Get().(*floatBuffer)
	if cap(wrapper.data) < size {
		return make([]float32, size)
	}
	return wrapper.data[:size]
}

func putTempBuffer(buf []float32) {
	// 4096x4096 RGBA
	if cap(buf) <= 64*1024*1024 {
		tempBufferPool.Put(&floatBuffer{data: buf[:cap(buf)]})
	}
}

// clampInt clamps v to [minVal, maxVal].
func clampInt(v, minVal, maxVal int) int {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clampUint8 clamps a float32 to [0, 255] and rounds to uint8.
func clampUint8(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
