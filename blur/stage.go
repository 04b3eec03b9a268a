// Package blur runs the timer-driven blur of the paper.
//
// A Stage reads the paper, blurs it into a buffer obtained from a
// texture.Slot and publishes the result. It runs on its own goroutine at a
// fixed interval, independent of the frame rate; the render loop picks up
// the latest published image through Slot.Acquire.
package blur

import (
	"context"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/relief/internal/filter"
	"github.com/gogpu/relief/internal/parallel"
	"github.com/gogpu/relief/internal/rlog"
	"github.com/gogpu/relief/raster"
	"github.com/gogpu/relief/texture"
)

// Defaults for a new Stage.
const (
	DefaultInterval = 30 * time.Millisecond
	DefaultRadius   = 33
)

// Option configures a Stage.
type Option func(*Stage)

// WithRadius sets the initial blur radius in pixels.
func WithRadius(radius float64) Option {
	return func(s *Stage) { s.SetRadius(radius) }
}

// WithPool blurs lines on pool instead of the ticking goroutine.
func WithPool(pool *parallel.WorkerPool) Option {
	return func(s *Stage) { s.blur.Pool = pool }
}

// Stage blurs the paper into a texture slot.
type Stage struct {
	src  *raster.Source
	slot *texture.Slot

	radius atomic.Uint64 // float64 bits

	mu         sync.Mutex // serializes Tick
	blur       filter.Blur
	lastGen    uint64
	lastRadius float64

	published atomic.Uint64
	skipped   atomic.Uint64
}

// NewStage creates a stage reading src and publishing into slot.
func NewStage(src *raster.Source, slot *texture.Slot, opts ...Option) *Stage {
	s := &Stage{src: src, slot: slot}
	s.SetRadius(DefaultRadius)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRadius changes the blur radius used by the next tick.
func (s *Stage) SetRadius(radius float64) {
	s.radius.Store(math.Float64bits(radius))
}

// Radius returns the current blur radius.
func (s *Stage) Radius() float64 {
	return math.Float64frombits(s.radius.Load())
}

// Tick blurs the paper once and reports whether a new image was published.
//
// The tick is skipped when the paper is not initialized, and when neither
// the paper nor the radius changed since the last published image, since
// the result would be identical.
func (s *Stage) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	radius := s.Radius()
	gen := s.src.Generation()
	if s.slot.Generation() > 0 && gen == s.lastGen && radius == s.lastRadius {
		s.skipped.Add(1)
		return false
	}

	var (
		out *texture.Image
		err error
	)
	s.blur.Radius = radius
	ok := s.src.Read(func(img *image.RGBA) {
		out = s.slot.Back(img.Rect.Dx(), img.Rect.Dy())
		err = s.blur.ApplyRGBA(img, out.RGBA())
	})
	if !ok {
		rlog.L().Debug("blur: paper not ready, tick skipped")
		s.skipped.Add(1)
		return false
	}
	if err != nil {
		rlog.L().Warn("blur: tick failed", "err", err)
		return false
	}

	s.slot.Publish(out)
	s.lastGen, s.lastRadius = gen, radius
	s.published.Add(1)
	return true
}

// Run ticks every interval until ctx is done. It returns nil on
// cancellation.
func (s *Stage) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	rlog.L().Debug("blur: stage started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Tick()
		}
	}
}

// Published returns the number of images published by this stage.
func (s *Stage) Published() uint64 { return s.published.Load() }

// Skipped returns the number of ticks that published nothing.
func (s *Stage) Skipped() uint64 { return s.skipped.Load() }
