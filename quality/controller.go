package quality

import (
	"sort"
	"sync"
	"time"
)

// Bucket maps frame rates below Below to Ratio.
type Bucket struct {
	Below float64 `toml:"below" yaml:"below"`
	Ratio float64 `toml:"ratio" yaml:"ratio"`
}

// DefaultBuckets is the pointer-down step function.
var DefaultBuckets = []Bucket{
	{Below: 10, Ratio: 0.1},
	{Below: 20, Ratio: 0.25},
	{Below: 30, Ratio: 0.35},
	{Below: 40, Ratio: 0.5},
	{Below: 50, Ratio: 1},
	{Below: 55, Ratio: 2},
}

const (
	// DefaultInitialRatio is the pixel ratio before any pointer event.
	DefaultInitialRatio = 1.0

	// DefaultIdleRatio is restored on pointer-up.
	DefaultIdleRatio = 2.0
)

// RatioFor returns the ratio of the first bucket whose bound exceeds fps.
// ok is false when fps is at or above every bound.
func RatioFor(buckets []Bucket, fps float64) (ratio float64, ok bool) {
	for _, b := range buckets {
		if fps < b.Below {
			return b.Ratio, true
		}
	}
	return 0, false
}

// State is the process-wide quality snapshot.
type State struct {
	PixelRatio  float64
	MeasuredFPS float64
}

// Option configures a Controller.
type Option func(*Controller)

// WithBuckets replaces the pointer-down buckets. They are sorted by bound.
func WithBuckets(buckets []Bucket) Option {
	return func(c *Controller) {
		if len(buckets) == 0 {
			return
		}
		sorted := append([]Bucket(nil), buckets...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Below < sorted[j].Below })
		c.buckets = sorted
	}
}

// WithInitialRatio sets the ratio used before any pointer event.
func WithInitialRatio(r float64) Option {
	return func(c *Controller) {
		if r > 0 {
			c.current = r
		}
	}
}

// WithIdleRatio sets the ratio restored on pointer-up.
func WithIdleRatio(r float64) Option {
	return func(c *Controller) {
		if r > 0 {
			c.idle = r
		}
	}
}

// WithWindow sets the FPS sampling window.
func WithWindow(d time.Duration) Option {
	return func(c *Controller) {
		c.meter = NewMeter(d)
	}
}

// Controller is the adaptive pixel ratio state machine.
// It is safe for concurrent use.
type Controller struct {
	meter   *Meter
	buckets []Bucket
	idle    float64

	mu      sync.Mutex
	current float64
	pending float64
}

// NewController creates a controller with the default buckets.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		meter:   NewMeter(DefaultWindow),
		buckets: DefaultBuckets,
		idle:    DefaultIdleRatio,
		current: DefaultInitialRatio,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tick feeds one rendered frame to the FPS meter.
func (c *Controller) Tick(now time.Time) {
	c.meter.Tick(now)
}

// PointerDown samples the measured FPS and schedules the matching ratio.
// Rates at or above every bucket keep the current ratio.
func (c *Controller) PointerDown() {
	ratio, ok := RatioFor(c.buckets, c.meter.FPS())
	if !ok {
		return
	}
	c.mu.Lock()
	c.pending = ratio
	c.mu.Unlock()
}

// PointerUp schedules the idle ratio unconditionally.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	c.pending = c.idle
	c.mu.Unlock()
}

// BeginFrame applies a scheduled ratio and returns the ratio for the frame.
func (c *Controller) BeginFrame() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending > 0 {
		c.current = c.pending
		c.pending = 0
	}
	return c.current
}

// PixelRatio returns the ratio applied by the last BeginFrame.
func (c *Controller) PixelRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the current ratio and FPS estimate.
func (c *Controller) State() State {
	return State{PixelRatio: c.PixelRatio(), MeasuredFPS: c.meter.FPS()}
}
