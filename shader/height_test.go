package shader

import (
	"image"
	"image/color"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/relief/texture"
)

func uniformTexture(w, h int, c color.RGBA) *texture.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return texture.FromRGBA(img)
}

func TestReconstructNormalNeverFacesAway(t *testing.T) {
	levels := []float32{0, 0.1, 0.5, 0.9, 1}
	steps := []float32{0, 1e-4, 0.03, 0.5}
	for _, height := range []float32{0, 1} {
		for _, l := range levels {
			for _, r := range levels {
				for _, u := range levels {
					for _, d := range levels {
						for _, s := range steps {
							n := ReconstructNormal(l, r, u, d, height, s, s)
							for i, c := range n {
								if math32.IsNaN(c) || math32.IsInf(c, 0) {
									t.Fatalf("component %d is %v for taps %v %v %v %v", i, c, l, r, u, d)
								}
							}
							if n != FlatNormal && !(n[2] > 0) {
								t.Fatalf("normal %v has non-positive z", n)
							}
						}
					}
				}
			}
		}
	}
}

func TestReconstructNormalPaperIsFlat(t *testing.T) {
	// Pseudo-depth of height 0 is -1, so the blend never exceeds 0.
	for _, taps := range [][4]float32{{0, 0, 0, 0}, {0, 1, 0, 0}, {1, 0, 0.5, 0.2}} {
		n := ReconstructNormal(taps[0], taps[1], taps[2], taps[3], 0, 0.03, 0.04)
		if n != FlatNormal {
			t.Errorf("taps %v: normal = %v, want FlatNormal", taps, n)
		}
	}
}

func TestReconstructNormalInkSlope(t *testing.T) {
	tests := []struct {
		name                  string
		left, right, up, down float32
		want                  mgl32.Vec3
		packed                mgl32.Vec4
	}{
		// A horizontal slope lands in Y; Z is left to the pseudo-depth
		// mix(0, 1*2.5-1, 0.5).
		{"horizontal", 0, 1, 0, 0, mgl32.Vec3{0, -1, 0.75}, mgl32.Vec4{0.5, 0, 0.875, 1}},
		{"vertical", 0, 0, 0, 1, mgl32.Vec3{-1, 0, 0.75}, mgl32.Vec4{0, 0.5, 0.875, 1}},
		// No slope at all leaves only the pseudo-depth.
		{"level", 1, 1, 1, 1, mgl32.Vec3{0, 0, 0.75}, mgl32.Vec4{0.5, 0.5, 0.875, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ReconstructNormal(tt.left, tt.right, tt.up, tt.down, 1, 0.03, 0.03)
			if !n.ApproxEqualThreshold(tt.want, 1e-5) {
				t.Errorf("normal = %v, want %v", n, tt.want)
			}
			if got := PackNormal(n); !got.ApproxEqualThreshold(tt.packed, 1e-5) {
				t.Errorf("packed = %v, want %v", got, tt.packed)
			}
		})
	}

	// Slopes on both axes give a positive cross product Z.
	n := ReconstructNormal(0, 0.5, 0, 0.5, 1, 0.03, 0.03)
	if !(n[0] < 0) || !(n[1] < 0) || !(n[2] > 0.75) {
		t.Errorf("diagonal slope normal = %v", n)
	}
}

func TestPackNormalRoundTrip(t *testing.T) {
	if got := PackNormal(FlatNormal); got != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Errorf("PackNormal(FlatNormal) = %v", got)
	}
	n := mgl32.Vec3{-0.6, 0.8, 0}
	if got := UnpackNormal(PackNormal(n)); !got.ApproxEqual(n) {
		t.Errorf("round trip = %v, want %v", got, n)
	}
}

func TestHeightEncoderNoInk(t *testing.T) {
	m := NewMaterial(HeightEncoder{})
	m.Uniforms.Input = uniformTexture(64, 32, color.RGBA{0, 0, 0, 255})
	m.Uniforms.Resolution = mgl32.Vec2{64, 32}

	for _, f := range []Fragment{
		{X: 0, Y: 0, UV: mgl32.Vec2{0.5 / 64, 0.5 / 32}},
		{X: 32, Y: 16, UV: mgl32.Vec2{32.5 / 64, 16.5 / 32}},
	} {
		if got := m.Shade(f); got != (mgl32.Vec4{1, 1, 1, 1}) {
			t.Errorf("fragment %v: %v, want packed flat normal", f, got)
		}
	}
}

func TestHeightEncoderWithoutInput(t *testing.T) {
	m := NewMaterial(HeightEncoder{})
	if got := m.Shade(Fragment{}); got != PackNormal(FlatNormal) {
		t.Errorf("unbound input: %v", got)
	}
}

func TestAlphaMask(t *testing.T) {
	tests := []struct {
		name string
		in   color.RGBA
		want float32
	}{
		{"paper", color.RGBA{0, 0, 0, 255}, 0},
		{"ink", color.RGBA{255, 255, 255, 255}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMaterial(AlphaMask{})
			m.Uniforms.Input = uniformTexture(8, 8, tt.in)
			got := m.Shade(Fragment{UV: mgl32.Vec2{0.5, 0.5}})
			if got != (mgl32.Vec4{tt.want, tt.want, tt.want, 1}) {
				t.Errorf("Shade = %v, want %v", got, tt.want)
			}
		})
	}
}
