// Package raster holds the ink paper: the pixel buffer strokes are painted
// into and the blur stage reads from.
//
// The paper is a gg.Context. Writers go through Paint, which serializes
// them and bumps a generation counter; readers go through Read, which holds
// a read lock for the duration of the callback. The paper always has the
// size of the viewport.
package raster

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gg"

	"github.com/gogpu/relief/internal/rlog"
)

// ErrInvalidSize is returned for non-positive dimensions.
var ErrInvalidSize = errors.New("raster: invalid size")

// Source is the paper. A nil or zero Source is uninitialized: Read reports
// false and the blur stage skips its tick.
type Source struct {
	mu sync.RWMutex
	dc *gg.Context
	bg gg.RGBA

	gen   atomic.Uint64
	dirty atomic.Bool

	hooksMu  sync.Mutex
	onResize []func(width, height int)
}

// New creates paper of the given size filled with background.
func New(width, height int, background gg.RGBA) (*Source, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	dc := gg.NewContext(width, height)
	dc.ClearWithColor(background)
	s := &Source{dc: dc, bg: background}
	s.touch()
	return s, nil
}

// Background returns the paper color.
func (s *Source) Background() gg.RGBA { return s.bg }

// Size returns the paper dimensions, or zero when uninitialized.
func (s *Source) Size() (width, height int) {
	if s == nil {
		return 0, 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dc == nil {
		return 0, 0
	}
	return s.dc.Width(), s.dc.Height()
}

// Paint runs fn with exclusive access to the drawing context and marks the
// paper dirty. fn must not retain dc.
func (s *Source) Paint(fn func(dc *gg.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc == nil {
		return ErrInvalidSize
	}
	err := fn(s.dc)
	if ferr := s.dc.FlushGPU(); err == nil {
		err = ferr
	}
	s.touch()
	return err
}

// Clear fills the paper with the background color.
func (s *Source) Clear() error {
	return s.Paint(func(dc *gg.Context) error {
		dc.ClearWithColor(s.bg)
		return nil
	})
}

// Read calls fn with a view of the current pixels and reports whether the
// paper was initialized. The view aliases the paper and is only valid
// inside fn.
func (s *Source) Read(fn func(img *image.RGBA)) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dc == nil {
		return false
	}
	pm := s.dc.ResizeTarget()
	w, h := pm.Width(), pm.Height()
	fn(&image.RGBA{
		Pix:    pm.Data(),
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	})
	return true
}

// Snapshot returns a copy of the current pixels, or nil when uninitialized.
func (s *Source) Snapshot() *image.RGBA {
	var out *image.RGBA
	s.Read(func(img *image.RGBA) {
		out = image.NewRGBA(img.Rect)
		copy(out.Pix, img.Pix)
	})
	return out
}

// Resize reallocates the paper, fills it with the background and then runs
// the resize hooks so collaborators can repaint.
func (s *Source) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	s.mu.Lock()
	if s.dc == nil {
		s.dc = gg.NewContext(width, height)
	} else if err := s.dc.Resize(width, height); err != nil {
		s.mu.Unlock()
		return err
	}
	s.dc.ClearWithColor(s.bg)
	s.touch()
	s.mu.Unlock()

	rlog.L().Debug("raster: resized", "width", width, "height", height)

	s.hooksMu.Lock()
	hooks := s.onResize
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(width, height)
	}
	return nil
}

// OnResize registers fn to run after every Resize.
func (s *Source) OnResize(fn func(width, height int)) {
	s.hooksMu.Lock()
	s.onResize = append(s.onResize, fn)
	s.hooksMu.Unlock()
}

// Generation increases on every write to the paper.
func (s *Source) Generation() uint64 {
	if s == nil {
		return 0
	}
	return s.gen.Load()
}

// Dirty reports whether the paper changed since the last TakeDirty.
func (s *Source) Dirty() bool {
	return s != nil && s.dirty.Load()
}

// TakeDirty clears the dirty flag and returns its previous value.
func (s *Source) TakeDirty() bool {
	return s != nil && s.dirty.Swap(false)
}

// Close releases the drawing context. The Source is uninitialized afterwards.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc == nil {
		return nil
	}
	err := s.dc.Close()
	s.dc = nil
	return err
}

func (s *Source) touch() {
	s.gen.Add(1)
	s.dirty.Store(true)
}
