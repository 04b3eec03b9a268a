package gpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/relief/shader"
	"github.com/gogpu/relief/texture"
)

// newNoopBackend creates a backend on a noop device.
func newNoopBackend(t *testing.T) *Backend {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("noop instance has no adapter")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	b := New(openDev.Device, openDev.Queue)
	t.Cleanup(func() {
		b.Destroy()
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return b
}

func TestCompilePrograms(t *testing.T) {
	b := newNoopBackend(t)
	err := b.Compile(shader.Programs())
	if err != nil {
		// The WGSL frontend may not cover every builtin yet.
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
			t.Skipf("naga: %v", err)
		}
		t.Fatalf("Compile: %v", err)
	}
	if got, want := b.Modules(), len(shader.Programs()); got != want {
		t.Errorf("Modules() = %d, want %d", got, want)
	}
	for _, p := range shader.Programs() {
		if _, ok := b.Module(p.Name()); !ok {
			t.Errorf("no module for %s", p.Name())
		}
	}

	// A second call reuses the existing modules.
	if err := b.Compile(shader.Programs()); err != nil {
		t.Errorf("second Compile: %v", err)
	}
}

type emptyProgram struct{ shader.AlphaMask }

func (emptyProgram) Name() string   { return "empty" }
func (emptyProgram) Source() string { return "" }

func TestCompileEmptyProgram(t *testing.T) {
	b := newNoopBackend(t)
	err := b.Compile([]shader.Program{emptyProgram{}})
	if !errors.Is(err, ErrEmptyProgram) {
		t.Fatalf("Compile(empty) = %v, want ErrEmptyProgram", err)
	}
	if _, ok := b.Module("empty"); ok {
		t.Error("failed program registered a module")
	}
}

func TestResize(t *testing.T) {
	b := newNoopBackend(t)
	if w, h := b.TargetSize(); w != 0 || h != 0 {
		t.Fatalf("TargetSize() before Resize = %dx%d", w, h)
	}

	tests := []struct {
		name    string
		w, h    int
		wantErr error
		wantW   int
		wantH   int
	}{
		{"initial", 64, 48, nil, 64, 48},
		{"same size", 64, 48, nil, 64, 48},
		{"grow", 320, 200, nil, 320, 200},
		{"zero width", 0, 10, ErrInvalidSize, 320, 200},
		{"negative height", 10, -1, ErrInvalidSize, 320, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Resize(tt.w, tt.h)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resize(%d, %d) = %v, want %v", tt.w, tt.h, err, tt.wantErr)
			}
			if w, h := b.TargetSize(); w != tt.wantW || h != tt.wantH {
				t.Errorf("TargetSize() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestUploadSkipsUnchangedImage(t *testing.T) {
	b := newNoopBackend(t)
	var slot texture.Slot

	if ok, err := b.Upload(nil); ok || err != nil {
		t.Fatalf("Upload(nil) = %v, %v", ok, err)
	}

	img := slot.Back(8, 4)
	slot.Publish(img)
	front := slot.Acquire()
	defer slot.Release(front)

	ok, err := b.Upload(front)
	if err != nil || !ok {
		t.Fatalf("first Upload = %v, %v", ok, err)
	}
	if ok, _ := b.Upload(front); ok {
		t.Error("second Upload of the same generation copied again")
	}

	next := slot.Back(16, 16)
	slot.Publish(next)
	if ok, err := b.Upload(next); err != nil || !ok {
		t.Errorf("Upload of new generation = %v, %v", ok, err)
	}
	if got := b.Uploads(); got != 2 {
		t.Errorf("Uploads() = %d, want 2", got)
	}
}

func TestWriteUniforms(t *testing.T) {
	b := newNoopBackend(t)
	u := shader.NewMaterial(shader.HeightEncoder{}).Uniforms
	u.Resolution[0], u.Resolution[1] = 640, 480
	for range 3 {
		if err := b.WriteUniforms(&u); err != nil {
			t.Fatalf("WriteUniforms: %v", err)
		}
	}
	if b.uniforms == nil {
		t.Error("uniform buffer not created")
	}
}

func TestDestroy(t *testing.T) {
	b := newNoopBackend(t)
	if err := b.Resize(8, 8); err != nil {
		t.Fatal(err)
	}
	b.Destroy()
	b.Destroy()

	if err := b.Resize(8, 8); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Resize after Destroy = %v", err)
	}
	if _, err := b.Upload(texture.NewImage(2, 2)); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Upload after Destroy = %v", err)
	}
	if err := b.WriteUniforms(&shader.Uniforms{}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("WriteUniforms after Destroy = %v", err)
	}
	if err := b.Draw(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Draw after Destroy = %v", err)
	}
	if err := b.Compile(nil); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Compile after Destroy = %v", err)
	}
	if w, h := b.TargetSize(); w != 0 || h != 0 {
		t.Errorf("TargetSize() after Destroy = %dx%d", w, h)
	}
}

// compileOrSkip compiles every program, skipping the test when the WGSL
// frontend lacks a builtin the sources use.
func compileOrSkip(t *testing.T, b *Backend) {
	t.Helper()
	if err := b.Compile(shader.Programs()); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
			t.Skipf("naga: %v", err)
		}
		t.Fatalf("Compile: %v", err)
	}
}

func TestDrawOffscreenPasses(t *testing.T) {
	b := newNoopBackend(t)
	compileOrSkip(t, b)

	if err := b.Draw(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Draw without targets = %v, want ErrNotReady", err)
	}
	if err := b.Resize(32, 24); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Draw without input = %v, want ErrNotReady", err)
	}

	var slot texture.Slot
	slot.Publish(slot.Back(32, 24))
	in := slot.Acquire()
	defer slot.Release(in)
	if _, err := b.Upload(in); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Draw without uniforms = %v, want ErrNotReady", err)
	}

	u := shader.NewMaterial(shader.HeightEncoder{}).Uniforms
	u.Resolution[0], u.Resolution[1] = 32, 24
	if err := b.WriteUniforms(&u); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := b.Draw(); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	}
	if got := b.Draws(); got != 2 {
		t.Errorf("Draws() = %d, want 2", got)
	}
	if len(b.pipelines) != 2 || b.bindGroup == nil {
		t.Errorf("pipelines = %d, bind group = %v", len(b.pipelines), b.bindGroup)
	}

	// A differently sized input replaces the texture and its bind group.
	next := slot.Back(64, 48)
	slot.Publish(next)
	if _, err := b.Upload(next); err != nil {
		t.Fatal(err)
	}
	if b.bindGroup != nil {
		t.Error("bind group kept after the input texture was replaced")
	}
	if err := b.Resize(64, 48); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(); err != nil {
		t.Fatalf("Draw after resize: %v", err)
	}
	if got := b.Draws(); got != 3 {
		t.Errorf("Draws() = %d, want 3", got)
	}
}

func TestDrawNeedsCompiledPrograms(t *testing.T) {
	b := newNoopBackend(t)
	if err := b.Resize(8, 8); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Upload(texture.NewImage(8, 8)); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteUniforms(&shader.Uniforms{}); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Draw before Compile = %v, want ErrNotReady", err)
	}
	if got := b.Draws(); got != 0 {
		t.Errorf("Draws() = %d, want 0", got)
	}
}

// plainProvider satisfies gpucontext.DeviceProvider without HAL access.
type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }

// halProvider exposes arbitrary HAL values.
type halProvider struct {
	plainProvider
	device, queue any
}

func (p halProvider) HalDevice() any { return p.device }
func (p halProvider) HalQueue() any  { return p.queue }

func TestFromProvider(t *testing.T) {
	if _, err := FromProvider(plainProvider{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("FromProvider(plain) = %v, want ErrNoHAL", err)
	}
	if _, err := FromProvider(halProvider{device: "nope"}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("FromProvider(bad device) = %v, want ErrNoHAL", err)
	}

	dev := newNoopBackend(t)
	b, err := FromProvider(halProvider{device: dev.device, queue: dev.queue})
	if err != nil {
		t.Fatalf("FromProvider: %v", err)
	}
	if b.device != hal.Device(dev.device) {
		t.Error("backend does not share the provider device")
	}
}
