// Package gpu mirrors the offscreen stage of the relief pipeline on a wgpu
// HAL device.
//
// The CPU pipeline remains the reference renderer. A Backend compiles every
// program's WGSL to SPIR-V through naga and creates its shader module, which
// also validates the sources against the device. It uploads the blurred
// input and the uniform block, and Draw encodes the two offscreen passes,
// the height encoder into the normal target and then the alpha mask into the
// alpha target, on the device. The post chain programs are compiled but only
// drawn by the CPU renderer; hosts presenting through the GPU bind the
// targets themselves.
//
// Every method is safe for concurrent use.
package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/relief/internal/rlog"
	"github.com/gogpu/relief/shader"
	"github.com/gogpu/relief/texture"
)

// Errors returned by Backend.
var (
	ErrNoHAL        = errors.New("gpu: provider does not expose HAL device and queue")
	ErrDestroyed    = errors.New("gpu: backend destroyed")
	ErrInvalidSize  = errors.New("gpu: invalid target size")
	ErrEmptyProgram = errors.New("gpu: program has no source")
	ErrNotReady     = errors.New("gpu: offscreen pass not ready")
)

// submitTimeout bounds the wait for one offscreen submission.
const submitTimeout = 5 * time.Second

// offscreenPasses lists the programs Draw runs, in order, with the target
// each one writes.
var offscreenPasses = [...]struct {
	program shader.Program
	alpha   bool
}{
	{shader.HeightEncoder{}, false},
	{shader.AlphaMask{}, true},
}

// targetPair is the device side of the offscreen targets. Both textures
// always have the same size.
type targetPair struct {
	normal, alpha         hal.Texture
	normalView, alphaView hal.TextureView
	width, height         int
}

// Backend owns the device resources of the pipeline.
type Backend struct {
	device hal.Device
	queue  hal.Queue

	mu        sync.Mutex
	destroyed bool
	modules   map[string]hal.ShaderModule
	targets   targetPair

	input     hal.Texture
	inputView hal.TextureView
	inputW    int
	inputH    int
	inputGen  uint64
	uniforms  hal.Buffer
	uploads   uint64

	// Offscreen pass state. The bind group references the input view and
	// the uniform buffer and is rebuilt when the input texture changes.
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  map[string]hal.RenderPipeline
	bindGroup  hal.BindGroup
	draws      uint64
}

// New creates a backend on an existing device and queue. The backend never
// destroys the device.
func New(device hal.Device, queue hal.Queue) *Backend {
	return &Backend{
		device:  device,
		queue:   queue,
		modules:   make(map[string]hal.ShaderModule),
		pipelines: make(map[string]hal.RenderPipeline),
	}
}

// FromProvider creates a backend sharing the device of a host provider.
// The provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func FromProvider(provider gpucontext.DeviceProvider) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	rlog.L().Info("gpu: attached to provider device")
	return New(device, queue), nil
}

// Compile creates a shader module for each program. Programs that fail are
// skipped and reported in the joined error; the others stay usable.
func (b *Backend) Compile(programs []shader.Program) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrDestroyed
	}

	var errs []error
	for _, p := range programs {
		if _, ok := b.modules[p.Name()]; ok {
			continue
		}
		m, err := b.compile(p)
		if err != nil {
			rlog.L().Warn("gpu: shader unavailable", "program", p.Name(), "err", err)
			errs = append(errs, fmt.Errorf("gpu: %s: %w", p.Name(), err))
			continue
		}
		b.modules[p.Name()] = m
	}
	return errors.Join(errs...)
}

func (b *Backend) compile(p shader.Program) (hal.ShaderModule, error) {
	src := p.Source()
	if src == "" {
		return nil, ErrEmptyProgram
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.Name(),
		Source: hal.ShaderSource{SPIRV: spirvWords(spirv)},
	})
}

// spirvWords converts little-endian SPIR-V bytes to words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}

// Module returns the shader module of a compiled program.
func (b *Backend) Module(name string) (hal.ShaderModule, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.modules[name]
	return m, ok
}

// Modules returns the number of compiled programs.
func (b *Backend) Modules() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.modules)
}

// Resize recreates the normal and alpha targets at the new size. Either both
// are replaced or, on error, the previous pair is kept.
func (b *Backend) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrDestroyed
	}
	if b.targets.width == width && b.targets.height == height && b.targets.normal != nil {
		return nil
	}

	var next targetPair
	var err error
	next.normal, next.normalView, err = b.createTarget("relief_normal", width, height)
	if err != nil {
		return err
	}
	next.alpha, next.alphaView, err = b.createTarget("relief_alpha", width, height)
	if err != nil {
		b.destroyTarget(next.normal, next.normalView)
		return err
	}
	next.width, next.height = width, height

	b.destroyTargets()
	b.targets = next
	rlog.L().Debug("gpu: targets resized", "width", width, "height", height)
	return nil
}

func (b *Backend) createTarget(label string, w, h int) (hal.Texture, hal.TextureView, error) {
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: create %s texture: %w", label, err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: label + "_view"})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("gpu: create %s view: %w", label, err)
	}
	return tex, view, nil
}

func (b *Backend) destroyTarget(tex hal.Texture, view hal.TextureView) {
	if view != nil {
		b.device.DestroyTextureView(view)
	}
	if tex != nil {
		b.device.DestroyTexture(tex)
	}
}

func (b *Backend) destroyTargets() {
	b.destroyTarget(b.targets.normal, b.targets.normalView)
	b.destroyTarget(b.targets.alpha, b.targets.alphaView)
	b.targets = targetPair{}
}

// TargetSize returns the size of the target pair, zero before Resize.
func (b *Backend) TargetSize() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.targets.width, b.targets.height
}

// Upload copies img into the device input texture. Images already uploaded
// (same publish generation) are skipped; it reports whether a copy was made.
func (b *Backend) Upload(img *texture.Image) (bool, error) {
	if img == nil {
		return false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return false, ErrDestroyed
	}
	if b.input != nil && img.Generation() == b.inputGen {
		return false, nil
	}

	w, h := img.Size()
	if b.input == nil || w != b.inputW || h != b.inputH {
		b.destroyInput()
		tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
			Label:         "relief_input",
			Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        gputypes.TextureFormatRGBA8Unorm,
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return false, fmt.Errorf("gpu: create input texture: %w", err)
		}
		view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "relief_input_view"})
		if err != nil {
			b.device.DestroyTexture(tex)
			return false, fmt.Errorf("gpu: create input view: %w", err)
		}
		b.input, b.inputView, b.inputW, b.inputH = tex, view, w, h
	}

	rgba := img.RGBA()
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: b.input, MipLevel: 0},
		rgba.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(rgba.Stride), RowsPerImage: uint32(h)},
		&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	)
	b.inputGen = img.Generation()
	b.uploads++
	return true, nil
}

func (b *Backend) destroyInput() {
	b.destroyBindGroup()
	b.destroyTarget(b.input, b.inputView)
	b.input, b.inputView = nil, nil
}

// Uploads returns the number of input texture copies made.
func (b *Backend) Uploads() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads
}

// WriteUniforms stores the packed uniform block in the device buffer.
func (b *Backend) WriteUniforms(u *shader.Uniforms) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrDestroyed
	}
	if b.uniforms == nil {
		buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "relief_uniforms",
			Size:  shader.UniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("gpu: create uniform buffer: %w", err)
		}
		b.uniforms = buf
	}
	b.queue.WriteBuffer(b.uniforms, 0, u.Bytes())
	return nil
}

// Destroy releases every resource created by the backend. Later calls
// return ErrDestroyed.
func (b *Backend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.destroyed = true

	b.destroyPipelines()
	for name, m := range b.modules {
		b.device.DestroyShaderModule(m)
		delete(b.modules, name)
	}
	b.destroyTargets()
	b.destroyInput()
	if b.uniforms != nil {
		b.device.DestroyBuffer(b.uniforms)
		b.uniforms = nil
	}
}

// Draw encodes the offscreen passes into the target pair and waits for the
// device to finish them. It needs compiled modules for both programs, a
// target pair (Resize), an input (Upload) and uniforms (WriteUniforms).
func (b *Backend) Draw() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrDestroyed
	}
	switch {
	case b.targets.normal == nil:
		return fmt.Errorf("%w: no targets", ErrNotReady)
	case b.inputView == nil:
		return fmt.Errorf("%w: no input", ErrNotReady)
	case b.uniforms == nil:
		return fmt.Errorf("%w: no uniforms", ErrNotReady)
	}
	if err := b.ensurePipelines(); err != nil {
		return err
	}
	if err := b.ensureBindGroup(); err != nil {
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "relief_offscreen"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("relief_offscreen"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	for _, pass := range offscreenPasses {
		view := b.targets.normalView
		if pass.alpha {
			view = b.targets.alphaView
		}
		rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: pass.program.Name(),
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
			}},
		})
		rp.SetPipeline(b.pipelines[pass.program.Name()])
		rp.SetBindGroup(0, b.bindGroup, nil)
		rp.Draw(3, 1, 0, 0)
		rp.End()
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	if ok, err := b.device.Wait(fence, 1, submitTimeout); err != nil || !ok {
		return fmt.Errorf("gpu: wait for offscreen passes: ok=%v err=%w", ok, err)
	}
	b.draws++
	return nil
}

// Draws returns the number of completed Draw submissions.
func (b *Backend) Draws() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draws
}

// ensurePipelines creates the shared layouts and one render pipeline per
// offscreen program. Both programs read the uniform block at binding 0 and
// load the input texture at binding 1.
func (b *Backend) ensurePipelines() error {
	if b.layout == nil {
		layout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label: "relief_offscreen_layout",
			Entries: []gputypes.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
					Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
				},
				{
					Binding:    1,
					Visibility: gputypes.ShaderStageFragment,
					Texture: &gputypes.TextureBindingLayout{
						SampleType:    gputypes.TextureSampleTypeFloat,
						ViewDimension: gputypes.TextureViewDimension2D,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("gpu: create bind group layout: %w", err)
		}
		b.layout = layout
	}
	if b.pipeLayout == nil {
		pl, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            "relief_offscreen_pipe_layout",
			BindGroupLayouts: []hal.BindGroupLayout{b.layout},
		})
		if err != nil {
			return fmt.Errorf("gpu: create pipeline layout: %w", err)
		}
		b.pipeLayout = pl
	}

	for _, pass := range offscreenPasses {
		name := pass.program.Name()
		if _, ok := b.pipelines[name]; ok {
			continue
		}
		module, ok := b.modules[name]
		if !ok {
			return fmt.Errorf("%w: %s not compiled", ErrNotReady, name)
		}
		pipeline, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:  name,
			Layout: b.pipeLayout,
			Vertex: hal.VertexState{
				Module:     module,
				EntryPoint: "vs_main",
			},
			Fragment: &hal.FragmentState{
				Module:     module,
				EntryPoint: "fs_main",
				Targets: []gputypes.ColorTargetState{{
					Format:    gputypes.TextureFormatRGBA8Unorm,
					WriteMask: gputypes.ColorWriteMaskAll,
				}},
			},
			Primitive: gputypes.PrimitiveState{
				Topology: gputypes.PrimitiveTopologyTriangleList,
				CullMode: gputypes.CullModeNone,
			},
			Multisample: gputypes.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
		if err != nil {
			return fmt.Errorf("gpu: create %s pipeline: %w", name, err)
		}
		b.pipelines[name] = pipeline
	}
	return nil
}

func (b *Backend) ensureBindGroup() error {
	if b.bindGroup != nil {
		return nil
	}
	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "relief_offscreen_bind",
		Layout: b.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: b.uniforms.NativeHandle(), Offset: 0, Size: shader.UniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: uintptr(b.inputView.NativeHandle()),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group: %w", err)
	}
	b.bindGroup = bg
	return nil
}

func (b *Backend) destroyBindGroup() {
	if b.bindGroup != nil {
		b.device.DestroyBindGroup(b.bindGroup)
		b.bindGroup = nil
	}
}

func (b *Backend) destroyPipelines() {
	b.destroyBindGroup()
	for name, p := range b.pipelines {
		b.device.DestroyRenderPipeline(p)
		delete(b.pipelines, name)
	}
	if b.pipeLayout != nil {
		b.device.DestroyPipelineLayout(b.pipeLayout)
		b.pipeLayout = nil
	}
	if b.layout != nil {
		b.device.DestroyBindGroupLayout(b.layout)
		b.layout = nil
	}
}
