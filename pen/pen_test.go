package pen

import (
	"image"
	"testing"

	"github.com/gogpu/gg"

	"github.com/gogpu/relief/param"
	"github.com/gogpu/relief/raster"
)

func newPaper(t *testing.T, w, h int) *raster.Source {
	t.Helper()
	src, err := raster.New(w, h, gg.Black)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func redAt(src *raster.Source, x, y int) uint8 {
	var r uint8
	src.Read(func(img *image.RGBA) { r = img.RGBAAt(x, y).R })
	return r
}

func TestStrokePaintsInk(t *testing.T) {
	src := newPaper(t, 64, 64)
	p := New(src)

	for _, step := range []struct {
		name string
		fn   func(x, y float64) error
		x, y float64
	}{
		{"down", p.Down, 10, 32},
		{"drag", p.Drag, 30, 32},
		{"up", p.Up, 54, 32},
	} {
		if err := step.fn(step.x, step.y); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
	}

	if p.Strokes() != 1 {
		t.Fatalf("Strokes() = %d, want 1", p.Strokes())
	}
	if r := redAt(src, 32, 32); r < 250 {
		t.Errorf("stroke center R = %d, want white ink", r)
	}
	if r := redAt(src, 32, 2); r != 0 {
		t.Errorf("far pixel R = %d, want paper", r)
	}
}

func TestUndoRedoClear(t *testing.T) {
	src := newPaper(t, 48, 48)
	p := New(src)

	if err := p.Down(24, 24); err != nil {
		t.Fatal(err)
	}
	if err := p.Up(24, 24); err != nil {
		t.Fatal(err)
	}
	if redAt(src, 24, 24) < 250 {
		t.Fatal("dot not painted")
	}

	if ok, err := p.Undo(); !ok || err != nil {
		t.Fatalf("Undo() = %v, %v", ok, err)
	}
	if r := redAt(src, 24, 24); r != 0 {
		t.Errorf("after undo R = %d, want 0", r)
	}
	if ok, _ := p.Undo(); ok {
		t.Error("Undo on empty history reported true")
	}

	if handled, err := p.Key('r'); !handled || err != nil {
		t.Fatalf("Key('r') = %v, %v", handled, err)
	}
	if redAt(src, 24, 24) < 250 {
		t.Error("redo did not restore the dot")
	}

	if handled, err := p.Key('c'); !handled || err != nil {
		t.Fatalf("Key('c') = %v, %v", handled, err)
	}
	if p.Strokes() != 0 || redAt(src, 24, 24) != 0 {
		t.Error("clear left ink behind")
	}
	if ok, _ := p.Redo(); ok {
		t.Error("Redo after Clear reported true")
	}

	if handled, _ := p.Key('x'); handled {
		t.Error("Key('x') handled")
	}
}

func TestApplyParams(t *testing.T) {
	src := newPaper(t, 64, 64)
	p := New(src)

	params := param.Defaults()
	params.StrokeWidth = 4
	p.Apply(params)

	if err := p.Down(32, 32); err != nil {
		t.Fatal(err)
	}
	if err := p.Up(32, 32); err != nil {
		t.Fatal(err)
	}
	if redAt(src, 32, 32) < 250 {
		t.Error("dot center not painted")
	}
	if r := redAt(src, 32, 40); r != 0 {
		t.Errorf("pixel outside 4px dot R = %d, want 0", r)
	}
}

func TestRedrawAfterResize(t *testing.T) {
	src := newPaper(t, 32, 32)
	p := New(src)
	if err := p.Down(8, 8); err != nil {
		t.Fatal(err)
	}
	if err := p.Up(8, 8); err != nil {
		t.Fatal(err)
	}

	if err := src.Resize(40, 40); err != nil {
		t.Fatal(err)
	}
	if redAt(src, 8, 8) < 250 {
		t.Error("stroke lost after resize")
	}
}

func TestDragWithoutDown(t *testing.T) {
	src := newPaper(t, 8, 8)
	p := New(src)
	if err := p.Drag(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := p.Up(1, 1); err != nil {
		t.Fatal(err)
	}
	if p.Strokes() != 0 {
		t.Errorf("Strokes() = %d, want 0", p.Strokes())
	}
}

func TestSimplify(t *testing.T) {
	line := []Point{{0, 0}, {1, 0.1}, {2, -0.1}, {3, 0}, {4, 5}, {5, 0}}

	tests := []struct {
		name      string
		tolerance float64
		want      int
	}{
		{"disabled", 0, 6},
		{"fine", 0.05, 6},
		{"coarse", 1, 4},
		{"huge", 100, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Simplify(line, tt.tolerance)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d (%v)", len(got), tt.want, got)
			}
			if got[0] != line[0] || got[len(got)-1] != line[len(line)-1] {
				t.Error("endpoints not kept")
			}
		})
	}
}
