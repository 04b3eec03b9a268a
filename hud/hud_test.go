package hud

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/gogpu/relief/param"
)

func TestStatsLines(t *testing.T) {
	lines := Stats{FPS: 59.6, PixelRatio: 0.35, Mode: param.Mode3D, Strokes: 2}.Lines()
	want := []string{"60 fps", "ratio 0.35", "mode 3d  strokes 2", "probe loading"}
	if len(lines) != len(want) {
		t.Fatalf("Lines() = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if got := (Stats{ProbeReady: true}).Lines()[3]; !strings.HasSuffix(got, "ready") {
		t.Errorf("probe line = %q", got)
	}
}

func TestOverlayDraw(t *testing.T) {
	o, err := New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = o.Close() })

	dst := image.NewRGBA(image.Rect(0, 0, 200, 120))
	white := color.RGBA{255, 255, 255, 255}
	for i := range dst.Pix {
		dst.Pix[i] = 255
	}

	r, err := o.Draw(dst, Stats{FPS: 30, PixelRatio: 2, Mode: param.Mode2D})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if r.Empty() || r.Min != (image.Point{}) {
		t.Fatalf("panel bounds = %v", r)
	}
	// The translucent panel darkens its corner; the far corner is untouched.
	if c := dst.RGBAAt(r.Max.X/2, 1); c == white {
		t.Error("panel left the destination unchanged")
	}
	if c := dst.RGBAAt(199, 119); c != white {
		t.Errorf("pixel outside panel = %v", c)
	}
}

func TestOverlayClipsToSmallDestination(t *testing.T) {
	o, err := New(DefaultSize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	r, err := o.Draw(dst, Stats{})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if r != dst.Bounds() {
		t.Errorf("bounds = %v, want clipped to %v", r, dst.Bounds())
	}
}

func TestOverlayClosed(t *testing.T) {
	o, err := New(DefaultSize)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := o.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if r, err := o.Draw(image.NewRGBA(image.Rect(0, 0, 4, 4)), Stats{}); err != nil || !r.Empty() {
		t.Errorf("Draw after Close = %v, %v", r, err)
	}
}
