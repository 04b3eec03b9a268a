// Package envmap provides the equirectangular light probe used for
// image-based lighting of the relief surface.
//
// A Probe keeps a chain of progressively blurred and downsampled copies of
// the environment. Rough surfaces sample the blurrier levels, so a single
// lookup approximates the prefiltered radiance for that roughness.
package envmap

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/internal/filter"
	"github.com/gogpu/relief/internal/parallel"
	"github.com/gogpu/relief/texture"
)

// Errors returned by the decoders and loaders.
var (
	ErrFormat = errors.New("envmap: unsupported image format")
	ErrRGBE   = errors.New("envmap: malformed radiance file")
	ErrEmpty  = errors.New("envmap: empty image")
)

const (
	// DefaultLevels is the number of roughness levels built for a probe.
	DefaultLevels = 6

	// minLevelSize stops the chain once a level gets this small.
	minLevelSize = 4

	// levelBlur is the blur radius, in texels of each level, applied after
	// halving.
	levelBlur = 1.5
)

// Probe is a prefiltered equirectangular environment.
type Probe struct {
	levels []*texture.Float
}

// NewProbe builds a probe from a linear HDR equirectangular image. Level 0
// is base itself; each further level halves the previous one and blurs it.
// pool may be nil.
func NewProbe(base *texture.Float, levels int, pool *parallel.WorkerPool) (*Probe, error) {
	if base == nil || base.Width == 0 || base.Height == 0 {
		return nil, ErrEmpty
	}
	if levels < 1 {
		levels = DefaultLevels
	}
	p := &Probe{levels: []*texture.Float{base}}
	blur := filter.NewBlur(levelBlur, pool)
	for len(p.levels) < levels {
		prev := p.levels[len(p.levels)-1]
		if prev.Width/2 < minLevelSize || prev.Height/2 < minLevelSize {
			break
		}
		next := halve(prev)
		if err := blur.ApplyFloat(next.Pix, next.Pix, next.Width, next.Height); err != nil {
			return nil, err
		}
		p.levels = append(p.levels, next)
	}
	return p, nil
}

// Levels returns the number of roughness levels.
func (p *Probe) Levels() int { return len(p.levels) }

// Level returns level i.
func (p *Probe) Level(i int) *texture.Float { return p.levels[i] }

// Sample returns the environment radiance seen along dir, a world-space
// direction, at the given roughness in [0, 1].
func (p *Probe) Sample(dir mgl32.Vec3, roughness float32) mgl32.Vec3 {
	if p == nil || len(p.levels) == 0 {
		return mgl32.Vec3{}
	}
	u, v := DirToUV(dir)
	lod := mgl32.Clamp(roughness, 0, 1) * float32(len(p.levels)-1)
	lo := int(lod)
	c := sampleWrap(p.levels[lo], u, v)
	if t := lod - float32(lo); t > 0 && lo+1 < len(p.levels) {
		c = c.Mul(1 - t).Add(sampleWrap(p.levels[lo+1], u, v).Mul(t))
	}
	return c.Vec3()
}

// DirToUV maps a direction to equirectangular texture coordinates with v
// pointing down: +Y is the top row and the seam lies along -X.
func DirToUV(dir mgl32.Vec3) (u, v float32) {
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
	}
	u = math32.Atan2(dir[2], dir[0])/(2*math32.Pi) + 0.5
	v = 0.5 - math32.Asin(mgl32.Clamp(dir[1], -1, 1))/math32.Pi
	return u, v
}

// sampleWrap samples f bilinearly, wrapping horizontally and clamping
// vertically.
func sampleWrap(f *texture.Float, u, v float32) mgl32.Vec4 {
	w := f.Width
	px := u*float32(w) - 0.5
	py := v*float32(f.Height) - 0.5
	fx0 := math32.Floor(px)
	fy0 := math32.Floor(py)
	tx, ty := px-fx0, py-fy0
	x0 := wrap(int(fx0), w)
	x1 := wrap(int(fx0)+1, w)
	y0 := int(fy0)

	top := f.Texel(x0, y0).Mul(1 - tx).Add(f.Texel(x1, y0).Mul(tx))
	bottom := f.Texel(x0, y0+1).Mul(1 - tx).Add(f.Texel(x1, y0+1).Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}

func wrap(x, n int) int {
	x %= n
	if x < 0 {
		x += n
	}
	return x
}

// halve averages 2x2 blocks. An odd trailing row or column is dropped.
func halve(src *texture.Float) *texture.Float {
	w, h := src.Width/2, src.Height/2
	dst := texture.NewFloat(w, h)
	for y := range h {
		for x := range w {
			var c mgl32.Vec4
			for dy := range 2 {
				for dx := range 2 {
					c = c.Add(src.Texel(2*x+dx, 2*y+dy))
				}
			}
			dst.Set(x, y, c.Mul(0.25))
		}
	}
	return dst
}
