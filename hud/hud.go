// Package hud draws the stats overlay in the top-left corner of the screen.
package hud

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/relief/param"
)

// DefaultSize is the font size of the overlay in pixels.
const DefaultSize = 13

const (
	padding     = 6
	lineSpacing = 1.35
)

// Stats is what the overlay shows.
type Stats struct {
	FPS        float64
	PixelRatio float64
	Mode       param.Mode
	Strokes    int
	ProbeReady bool
}

// Lines formats s one entry per line.
func (s Stats) Lines() []string {
	probe := "loading"
	if s.ProbeReady {
		probe = "ready"
	}
	return []string{
		fmt.Sprintf("%.0f fps", s.FPS),
		fmt.Sprintf("ratio %.2f", s.PixelRatio),
		fmt.Sprintf("mode %s  strokes %d", s.Mode, s.Strokes),
		"probe " + probe,
	}
}

// Overlay renders Stats with gg text into a small panel and composites it
// over a destination image.
type Overlay struct {
	mu     sync.Mutex
	source *text.FontSource
	face   text.Face
	size   float64
	dc     *gg.Context
}

// New loads the embedded Go Regular font at the given pixel size.
func New(size float64) (*Overlay, error) {
	if size <= 0 {
		size = DefaultSize
	}
	source, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("hud: load font: %w", err)
	}
	return &Overlay{source: source, face: source.Face(size), size: size}, nil
}

// Draw composites the overlay for s onto dst and returns the panel bounds.
func (o *Overlay) Draw(dst draw.Image, s Stats) (image.Rectangle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.source == nil {
		return image.Rectangle{}, nil
	}

	lines := s.Lines()
	lineH := o.size * lineSpacing
	if err := o.ensure(lines, lineH); err != nil {
		return image.Rectangle{}, err
	}

	dc := o.dc
	dc.Clear()
	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRoundedRectangle(0, 0, float64(dc.Width()), float64(dc.Height()), 4)
	dc.Fill()
	dc.SetFont(o.face)
	dc.SetRGB(1, 1, 1)
	for i, line := range lines {
		dc.DrawString(line, padding, padding+o.size+float64(i)*lineH)
	}
	if err := dc.FlushGPU(); err != nil {
		return image.Rectangle{}, fmt.Errorf("hud: flush: %w", err)
	}

	panel := dc.Image()
	r := panel.Bounds().Add(dst.Bounds().Min).Intersect(dst.Bounds())
	draw.Draw(dst, r, panel, image.Point{}, draw.Over)
	return r, nil
}

// ensure sizes the panel context for lines.
func (o *Overlay) ensure(lines []string, lineH float64) error {
	if o.dc == nil {
		o.dc = gg.NewContext(1, 1)
	}
	o.dc.SetFont(o.face)
	var width float64
	for _, line := range lines {
		if w, _ := o.dc.MeasureString(line); w > width {
			width = w
		}
	}
	w := int(math.Ceil(width)) + 2*padding
	h := int(math.Ceil(float64(len(lines))*lineH)) + 2*padding
	if o.dc.Width() == w && o.dc.Height() == h {
		return nil
	}
	if err := o.dc.Resize(w, h); err != nil {
		return fmt.Errorf("hud: resize panel: %w", err)
	}
	return nil
}

// Close releases the font and the panel.
func (o *Overlay) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.dc != nil {
		_ = o.dc.Close()
		o.dc = nil
	}
	if o.source == nil {
		return nil
	}
	err := o.source.Close()
	o.source = nil
	return err
}
