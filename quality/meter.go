// Package quality trades render resolution for frame rate.
//
// A Meter measures frames per second over a fixed wall-clock window. The
// Controller maps the measured rate to a pixel ratio when the pointer goes
// down and restores a high ratio when it comes up. A new ratio is only
// applied by BeginFrame, never in the middle of a frame.
package quality

import (
	"sync"
	"time"
)

// DefaultWindow is the FPS sampling window.
const DefaultWindow = 100 * time.Millisecond

// Meter counts frames and recomputes FPS once per window.
type Meter struct {
	mu     sync.Mutex
	window time.Duration
	start  time.Time
	frames int
	fps    float64
}

// NewMeter creates a meter with the given window. Non-positive windows use
// DefaultWindow.
func NewMeter(window time.Duration) *Meter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Meter{window: window}
}

// Tick records one frame at now and reports whether the FPS estimate was
// refreshed.
func (m *Meter) Tick(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.start.IsZero() {
		m.start = now
		return false
	}
	m.frames++

	elapsed := now.Sub(m.start)
	if elapsed < m.window {
		return false
	}
	m.fps = float64(m.frames) / elapsed.Seconds()
	m.frames = 0
	m.start = now
	return true
}

// FPS returns the last complete estimate, 0 before the first window closes.
func (m *Meter) FPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fps
}
