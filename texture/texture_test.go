package texture

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func vecNear(a, b mgl32.Vec4, eps float32) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > float64(eps) {
			return false
		}
	}
	return true
}

func TestImageSampleTexelCenters(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{255, 255, 255, 255})
	tex := FromRGBA(img)

	tests := []struct {
		name string
		u, v float32
		want mgl32.Vec4
	}{
		{"left center", 0.25, 0.5, mgl32.Vec4{0, 0, 0, 1}},
		{"right center", 0.75, 0.5, mgl32.Vec4{1, 1, 1, 1}},
		{"midpoint", 0.5, 0.5, mgl32.Vec4{0.5, 0.5, 0.5, 1}},
		{"clamped left", -3, 0.5, mgl32.Vec4{0, 0, 0, 1}},
		{"clamped right", 7, 9, mgl32.Vec4{1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tex.Sample(tt.u, tt.v); !vecNear(got, tt.want, 1e-5) {
				t.Errorf("Sample(%v, %v) = %v, want %v", tt.u, tt.v, got, tt.want)
			}
		})
	}
}

func TestFloatSetAndSample(t *testing.T) {
	f := NewFloat(4, 4)
	f.Set(-1, 0, mgl32.Vec4{9, 9, 9, 9})
	f.Set(1, 2, mgl32.Vec4{4, 3, 2, 1})

	if got := f.Texel(1, 2); got != (mgl32.Vec4{4, 3, 2, 1}) {
		t.Errorf("Texel = %v", got)
	}
	// Center of texel (1,2) is u=(1+0.5)/4, v=(2+0.5)/4.
	if got := f.Sample(0.375, 0.625); !vecNear(got, mgl32.Vec4{4, 3, 2, 1}, 1e-5) {
		t.Errorf("Sample = %v", got)
	}
	if w, h := f.Size(); w != 4 || h != 4 {
		t.Errorf("Size = %dx%d", w, h)
	}
}

func TestEmptyTextureSamplesZero(t *testing.T) {
	if got := NewFloat(0, 0).Sample(0.5, 0.5); got != (mgl32.Vec4{}) {
		t.Errorf("Sample on empty texture = %v", got)
	}
}
