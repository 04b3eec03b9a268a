// Package pen is the freehand stroke editor that paints onto the paper.
//
// Strokes are kept as point lists so the paper can be repainted from
// scratch after undo, redo, clear or a viewport resize. Ink is white on the
// black paper by default; the relief pipeline treats bright pixels as ink.
package pen

import (
	"math"
	"sync"

	"github.com/gogpu/gg"

	"github.com/gogpu/relief/internal/rlog"
	"github.com/gogpu/relief/param"
	"github.com/gogpu/relief/raster"
)

// Defaults for a new pen.
const (
	DefaultWidth     = 23
	DefaultSmoothing = 5
)

// Point is a position on the paper in pixels.
type Point struct {
	X, Y float64
}

// Stroke is one committed pen stroke.
type Stroke struct {
	Points []Point
	Width  float64
	Color  gg.RGBA
}

// Pen records strokes and paints them on a raster.Source.
type Pen struct {
	src *raster.Source

	mu        sync.Mutex
	width     float64
	smoothing float64
	color     gg.RGBA
	strokes   []Stroke
	undone    []Stroke
	active    *Stroke
}

// New creates a pen painting on src and repaints src after each resize.
func New(src *raster.Source) *Pen {
	p := &Pen{
		src:       src,
		width:     DefaultWidth,
		smoothing: DefaultSmoothing,
		color:     gg.White,
	}
	src.OnResize(func(int, int) {
		if err := p.Redraw(); err != nil {
			rlog.L().Warn("pen: redraw after resize failed", "err", err)
		}
	})
	return p
}

// Apply takes stroke width and smoothing from a parameter snapshot. It
// affects strokes started afterwards.
func (p *Pen) Apply(params param.Params) {
	p.mu.Lock()
	p.width = params.StrokeWidth
	p.smoothing = params.Smoothing
	p.mu.Unlock()
}

// SetColor sets the ink color of strokes started afterwards.
func (p *Pen) SetColor(c gg.RGBA) {
	p.mu.Lock()
	p.color = c
	p.mu.Unlock()
}

// Down starts a stroke at (x, y).
func (p *Pen) Down(x, y float64) error {
	p.mu.Lock()
	p.active = &Stroke{
		Points: []Point{{x, y}},
		Width:  p.width,
		Color:  p.color,
	}
	s := *p.active
	p.mu.Unlock()

	return p.src.Paint(func(dc *gg.Context) error {
		return paint(dc, s)
	})
}

// Drag extends the active stroke to (x, y). It is a no-op without Down.
func (p *Pen) Drag(x, y float64) error {
	p.mu.Lock()
	if p.active == nil {
		p.mu.Unlock()
		return nil
	}
	pts := p.active.Points
	last := pts[len(pts)-1]
	p.active.Points = append(pts, Point{x, y})
	seg := Stroke{Points: []Point{last, {x, y}}, Width: p.active.Width, Color: p.active.Color}
	p.mu.Unlock()

	return p.src.Paint(func(dc *gg.Context) error {
		return paint(dc, seg)
	})
}

// Up ends the active stroke at (x, y), simplifies it and repaints the paper
// so the committed stroke replaces the raw drag segments.
func (p *Pen) Up(x, y float64) error {
	p.mu.Lock()
	if p.active == nil {
		p.mu.Unlock()
		return nil
	}
	s := *p.active
	p.active = nil
	s.Points = Simplify(append(s.Points, Point{x, y}), p.smoothing)
	p.strokes = append(p.strokes, s)
	p.mu.Unlock()

	return p.Redraw()
}

// Undo removes the last committed stroke. It reports whether there was one.
func (p *Pen) Undo() (bool, error) {
	p.mu.Lock()
	n := len(p.strokes)
	if n == 0 {
		p.mu.Unlock()
		return false, nil
	}
	p.undone = append(p.undone, p.strokes[n-1])
	p.strokes = p.strokes[:n-1]
	p.mu.Unlock()
	return true, p.Redraw()
}

// Redo restores the most recently undone stroke.
func (p *Pen) Redo() (bool, error) {
	p.mu.Lock()
	n := len(p.undone)
	if n == 0 {
		p.mu.Unlock()
		return false, nil
	}
	p.strokes = append(p.strokes, p.undone[n-1])
	p.undone = p.undone[:n-1]
	p.mu.Unlock()
	return true, p.Redraw()
}

// Clear removes every stroke. Cleared strokes cannot be redone.
func (p *Pen) Clear() error {
	p.mu.Lock()
	p.strokes = nil
	p.undone = nil
	p.active = nil
	p.mu.Unlock()
	return p.src.Clear()
}

// Key runs the keyboard shortcut for r: u undoes, r redoes, c clears. It
// reports whether r was a pen shortcut.
func (p *Pen) Key(r rune) (bool, error) {
	switch r {
	case 'u':
		_, err := p.Undo()
		return true, err
	case 'r':
		_, err := p.Redo()
		return true, err
	case 'c':
		return true, p.Clear()
	}
	return false, nil
}

// Strokes returns the number of committed strokes.
func (p *Pen) Strokes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.strokes)
}

// Redraw repaints the paper from the committed strokes.
func (p *Pen) Redraw() error {
	p.mu.Lock()
	strokes := make([]Stroke, len(p.strokes))
	copy(strokes, p.strokes)
	p.mu.Unlock()

	bg := p.src.Background()
	return p.src.Paint(func(dc *gg.Context) error {
		dc.ClearWithColor(bg)
		for _, s := range strokes {
			if err := paint(dc, s); err != nil {
				return err
			}
		}
		return nil
	})
}

// paint draws s with round caps and joins, joining the points with
// quadratic segments through their midpoints.
func paint(dc *gg.Context, s Stroke) error {
	if len(s.Points) == 0 {
		return nil
	}
	dc.SetRGBA(s.Color.R, s.Color.G, s.Color.B, s.Color.A)

	if len(s.Points) == 1 || allSame(s.Points) {
		p := s.Points[0]
		dc.DrawCircle(p.X, p.Y, s.Width/2)
		return dc.Fill()
	}

	dc.SetLineWidth(s.Width)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	pts := s.Points
	dc.MoveTo(pts[0].X, pts[0].Y)
	for i := 1; i < len(pts)-1; i++ {
		mx := (pts[i].X + pts[i+1].X) / 2
		my := (pts[i].Y + pts[i+1].Y) / 2
		dc.QuadraticTo(pts[i].X, pts[i].Y, mx, my)
	}
	last := pts[len(pts)-1]
	dc.LineTo(last.X, last.Y)
	return dc.Stroke()
}

func allSame(pts []Point) bool {
	for _, p := range pts[1:] {
		if p != pts[0] {
			return false
		}
	}
	return true
}

// Simplify reduces pts with the Ramer-Douglas-Peucker algorithm. Points
// closer than tolerance to the simplified polyline are dropped. A
// tolerance of zero or less returns pts unchanged.
func Simplify(pts []Point, tolerance float64) []Point {
	if tolerance <= 0 || len(pts) < 3 {
		return pts
	}
	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true
	rdp(pts, 0, len(pts)-1, tolerance, keep)

	out := make([]Point, 0, len(pts))
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

func rdp(pts []Point, lo, hi int, tolerance float64, keep []bool) {
	if hi-lo < 2 {
		return
	}
	maxDist, idx := 0.0, -1
	for i := lo + 1; i < hi; i++ {
		if d := segmentDistance(pts[i], pts[lo], pts[hi]); d > maxDist {
			maxDist, idx = d, i
		}
	}
	if idx < 0 || maxDist <= tolerance {
		return
	}
	keep[idx] = true
	rdp(pts, lo, idx, tolerance, keep)
	rdp(pts, idx, hi, tolerance, keep)
}

func segmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
