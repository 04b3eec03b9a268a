package param

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
)

func TestDefaultsValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v", err)
	}
}

func TestStoreSet(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		value   any
		wantErr error
		check   func(Params) bool
	}{
		{"stroke width", "strokeWidth", 40, nil, func(p Params) bool { return p.StrokeWidth == 40 }},
		{"blur radius float", "blurRadius", 58.0, nil, func(p Params) bool { return p.BlurRadius == 58 }},
		{"blur radius low", "blurRadius", 5.0, ErrOutOfRange, nil},
		{"exposure high", "exposure", 11.0, ErrOutOfRange, nil},
		{"threshold string", "threshold", "0.3", ErrInvalidValue, nil},
		{"threshold at cap", "threshold", MaxThreshold, nil, func(p Params) bool { return p.Threshold == MaxThreshold }},
		{"threshold past cap", "threshold", 0.85, ErrOutOfRange, nil},
		{"unknown", "circleRadius", 3, ErrUnknownParam, nil},
		{"brush color", "brushColor", "#ff8800", nil, func(p Params) bool { return p.BrushColor == "#ff8800" }},
		{"brush color bad", "brushColor", "orange", ErrInvalidValue, nil},
		{"mode string", "mode", "2D", nil, func(p Params) bool { return p.Mode == Mode2D }},
		{"mode bool", "mode", true, nil, func(p Params) bool { return p.Mode == Mode3D }},
		{"mode bad", "mode", "4d", ErrInvalidValue, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(Defaults())
			err := s.Set(tt.param, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if s.Load() != Defaults() {
					t.Error("rejected Set modified the store")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !tt.check(s.Load()) {
				t.Errorf("params after Set = %+v", s.Load())
			}
		})
	}
}

func TestStoreNotifiesOnChangeOnly(t *testing.T) {
	s := NewStore(Defaults())
	var got []Change
	s.OnChange(func(c Change) { got = append(got, c) })

	if err := s.Set("roughness", 0.4); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("roughness", 0.4); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "roughness" || got[0].Params.Roughness != 0.4 {
		t.Errorf("changes = %+v", got)
	}
}

func TestStoreApply(t *testing.T) {
	s := NewStore(Defaults())
	var names []string
	s.OnChange(func(c Change) { names = append(names, c.Name) })

	p := Defaults()
	p.Exposure = 1.2
	p.Mode = Mode2D
	if err := s.Apply(p); err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "exposure" || names[1] != "mode" {
		t.Errorf("notified %v, want [exposure mode]", names)
	}

	bad := p
	bad.Metalness = 3
	bad.BrushColor = "nope"
	err := s.Apply(bad)
	if !errors.Is(err, ErrOutOfRange) || !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Apply(bad) = %v, want both range and value errors", err)
	}
	if s.Load() != p {
		t.Error("rejected Apply modified the store")
	}
}

func TestToggleMode(t *testing.T) {
	s := NewStore(Defaults())
	if got := s.ToggleMode(); got != Mode2D {
		t.Errorf("first toggle = %v", got)
	}
	if got := s.ToggleMode(); got != Mode3D || s.Load().Mode != Mode3D {
		t.Errorf("second toggle = %v", got)
	}
}

func TestToggleModeConcurrent(t *testing.T) {
	s := NewStore(Defaults())
	var changes atomic.Int64
	s.OnChange(func(Change) { changes.Add(1) })

	const toggles = 64
	var wg sync.WaitGroup
	for range toggles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ToggleMode()
		}()
	}
	wg.Wait()

	// An even number of flips lands back on the start, and none is lost.
	if got := s.Load().Mode; got != Defaults().Mode {
		t.Errorf("mode after %d toggles = %v, want %v", toggles, got, Defaults().Mode)
	}
	if got := changes.Load(); got != toggles {
		t.Errorf("changes = %d, want %d", got, toggles)
	}
}

func TestNamesCoverRanges(t *testing.T) {
	names := Names()
	if len(names) != len(Ranges())+2 {
		t.Fatalf("Names() = %v", names)
	}
	p := Defaults()
	for _, n := range names {
		if p.get(n) == nil {
			t.Errorf("get(%q) = nil", n)
		}
	}
}

func TestLinearBrushColor(t *testing.T) {
	p := Defaults()
	r, g, b := p.LinearBrushColor()
	// #8e8e8e is sRGB 0.557, about 0.27 linear.
	for _, c := range []float64{r, g, b} {
		if math.Abs(c-0.27) > 0.01 {
			t.Errorf("channel = %v, want ~0.27", c)
		}
	}

	p.BrushColor = "bogus"
	if r, _, _ := p.LinearBrushColor(); r != 0.5 {
		t.Errorf("fallback red = %v, want 0.5", r)
	}
}
