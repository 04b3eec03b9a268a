package relief

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/relief/blur"
	"github.com/gogpu/relief/envmap"
	"github.com/gogpu/relief/gpu"
	"github.com/gogpu/relief/hud"
	"github.com/gogpu/relief/internal/parallel"
	"github.com/gogpu/relief/internal/rlog"
	"github.com/gogpu/relief/param"
	"github.com/gogpu/relief/pen"
	"github.com/gogpu/relief/quality"
	"github.com/gogpu/relief/raster"
	"github.com/gogpu/relief/render"
	"github.com/gogpu/relief/shader"
	"github.com/gogpu/relief/surface"
	"github.com/gogpu/relief/texture"
)

// Resolution of the built-in light probe.
const studioWidth, studioHeight = 256, 128

// App wires the paper, the blur stage and the render pipeline together.
//
// Frame, Resize and the camera controls are serialized; pointer and key
// events may arrive from any goroutine.
type App struct {
	cfg    Config
	opts   options
	params *param.Store
	pool   *parallel.WorkerPool

	paper *raster.Source
	pen   *pen.Pen
	slot  texture.Slot
	blur  *blur.Stage

	renderer   *render.SoftwareRenderer
	compositor *render.Compositor
	surface    *surface.Renderer
	post       *render.PostChain
	quality    *quality.Controller

	loader *envmap.Loader
	life   context.Context // cancelled by Close
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	gpu     *gpu.Backend
	gpuDraw bool // both offscreen programs compiled
	hud     *hud.Overlay
	frames  uint64
	skipped uint64
}

// New builds an App for cfg. The light probe starts loading in the
// background; until it arrives the relief is rendered unlit.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}

	a := &App{
		cfg:    cfg,
		opts:   o,
		params: param.NewStore(cfg.Params),
		pool:   parallel.NewWorkerPool(o.workers),
	}
	a.renderer = render.NewSoftwareRenderer(a.pool)

	if err := a.build(); err != nil {
		a.pool.Close()
		return nil, err
	}

	a.life, a.cancel = context.WithCancel(context.Background())
	a.attachProbe(a.life)
	a.attachGPU()
	if cfg.HUD || o.hud {
		overlay, err := hud.New(hud.DefaultSize)
		if err != nil {
			rlog.L().Warn("relief: hud unavailable", "err", err)
		} else {
			a.hud = overlay
		}
	}

	a.params.OnChange(func(c param.Change) {
		rlog.L().Debug("relief: parameter changed", "name", c.Name)
	})
	rlog.L().Info("relief: app ready", "width", cfg.Width, "height", cfg.Height)
	return a, nil
}

func (a *App) build() error {
	w, h := a.cfg.Width, a.cfg.Height
	p := a.params.Load()

	paper, err := raster.New(w, h, gg.Black)
	if err != nil {
		return fmt.Errorf("relief: paper: %w", err)
	}
	a.paper = paper
	a.pen = pen.New(paper)
	a.pen.Apply(p)
	a.blur = blur.NewStage(paper, &a.slot, blur.WithRadius(p.BlurRadius), blur.WithPool(a.pool))

	a.compositor, err = render.NewCompositor(w, h)
	if err != nil {
		return fmt.Errorf("relief: compositor: %w", err)
	}
	a.compositor.SetNormalStep(float32(a.cfg.NormalStep))

	aspect := float32(w) / float32(h)
	cam := surface.NewCamera(aspect)
	cam.FOV = float32(a.cfg.Camera.FOV)
	cam.Near = float32(a.cfg.Camera.Near)
	cam.Far = float32(a.cfg.Camera.Far)
	if d := a.cfg.Camera.Distance; d > 0 {
		cam.Zoom(float32(d / surface.DefaultDistance))
	}
	a.surface = surface.NewRenderer(cam, a.compositor.NormalMap(), a.compositor.AlphaMap())
	r, g, b := a.cfg.linearBackground()
	a.surface.Background = mgl32.Vec3{r, g, b}

	a.post, err = render.NewPostChain(w, h, a.cfg.InitialPixelRatio)
	if err != nil {
		return fmt.Errorf("relief: post chain: %w", err)
	}

	a.quality = quality.NewController(
		quality.WithBuckets(a.cfg.Buckets),
		quality.WithInitialRatio(a.cfg.InitialPixelRatio),
		quality.WithIdleRatio(a.cfg.IdlePixelRatio),
		quality.WithWindow(a.cfg.FPSWindow.Std()),
	)
	return nil
}

// attachProbe installs the injected probe, the studio probe, or starts
// loading Config.LightProbe.
func (a *App) attachProbe(ctx context.Context) {
	switch {
	case a.opts.probe != nil:
		a.surface.SetProbe(a.opts.probe)
	case a.cfg.LightProbe == "":
		probe, err := envmap.NewProbe(envmap.Studio(studioWidth, studioHeight), envmap.DefaultLevels, a.pool)
		if err != nil {
			rlog.L().Warn("relief: studio probe failed, lighting disabled", "err", err)
			return
		}
		a.surface.SetProbe(probe)
	default:
		a.loader = envmap.LoadAsync(ctx, a.cfg.LightProbe, a.pool)
	}
}

// attachGPU mirrors the pipeline on the provider device, if any. Failures
// leave the App CPU only.
func (a *App) attachGPU() {
	if a.opts.provider == nil {
		return
	}
	b, err := gpu.FromProvider(a.opts.provider)
	if err != nil {
		rlog.L().Warn("relief: gpu unavailable, rendering on cpu", "err", err)
		return
	}
	if err := b.Compile(shader.Programs()); err != nil {
		rlog.L().Warn("relief: some shader modules unavailable", "err", err)
	}
	_, normalOK := b.Module(shader.HeightEncoder{}.Name())
	_, alphaOK := b.Module(shader.AlphaMask{}.Name())
	if err := b.Resize(a.cfg.Width, a.cfg.Height); err != nil {
		rlog.L().Warn("relief: gpu targets unavailable", "err", err)
		b.Destroy()
		return
	}
	a.gpu = b
	a.gpuDraw = normalOK && alphaOK
}

// Run drives the background tasks until ctx is done or the App is closed:
// the blur timer, the light probe loader, the params file watcher and, when
// Config.FrameInterval is set, the frame loop. It returns the first task
// error, or nil on cancellation.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return ErrClosed
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	defer context.AfterFunc(a.life, stop)()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.blur.Run(ctx, a.cfg.BlurInterval.Std())
	})
	if a.loader != nil {
		g.Go(func() error {
			probe, err := a.loader.Wait(ctx)
			if err != nil || probe == nil {
				// Already logged by the loader; lighting stays absent.
				return nil
			}
			a.surface.SetProbe(probe)
			rlog.L().Info("relief: light probe loaded", "path", a.cfg.LightProbe, "levels", probe.Levels())
			return nil
		})
	}
	if a.cfg.ParamsFile != "" {
		g.Go(func() error {
			return param.Watch(ctx, a.cfg.ParamsFile, a.params)
		})
	}
	if interval := a.cfg.FrameInterval.Std(); interval > 0 {
		g.Go(func() error {
			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					a.Frame(a.opts.clock())
				}
			}
		})
	}
	return g.Wait()
}

// TickBlur runs one blur tick on the calling goroutine, for hosts that do
// not call Run. It reports whether a new image was published.
func (a *App) TickBlur() bool {
	return a.blur.Tick()
}

// Frame renders one frame at time now and reports whether it was drawn.
// Frames before the first blurred image, and after Close, are skipped.
func (a *App) Frame(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}

	a.quality.Tick(now)
	ratio := a.quality.BeginFrame()
	a.post.SetPixelRatio(ratio)

	p := a.params.Load()
	a.pen.Apply(p)
	a.blur.SetRadius(p.BlurRadius)
	a.compositor.SetThreshold(float32(p.Threshold))
	a.pollProbe()

	in := a.slot.Acquire()
	if in == nil {
		a.skipped++
		rlog.L().Debug("relief: frame skipped, no blurred image yet")
		return false
	}
	defer a.slot.Release(in)

	a.compositor.SetInput(in)
	if err := a.compositor.Render(a.renderer); err != nil {
		a.skipped++
		rlog.L().Warn("relief: offscreen passes failed", "err", err)
		return false
	}

	a.surface.Apply(p)
	if err := a.post.Render(a.renderer, a.surface, float32(p.Exposure)); err != nil {
		a.skipped++
		rlog.L().Warn("relief: post chain failed", "err", err)
		return false
	}

	a.syncGPU(in)
	a.drawHUD(ratio, p)
	a.frames++
	return true
}

func (a *App) pollProbe() {
	if a.loader == nil || a.surface.Probe() != nil {
		return
	}
	if probe := a.loader.Probe(); probe != nil {
		a.surface.SetProbe(probe)
	}
}

// syncGPU copies the frame input and uniforms to the device and runs the
// offscreen passes there. A failing backend is dropped and the App
// continues on the CPU.
func (a *App) syncGPU(in *texture.Image) {
	if a.gpu == nil {
		return
	}
	normal, _ := a.compositor.Materials()
	var err error
	if _, err = a.gpu.Upload(in); err == nil {
		err = a.gpu.WriteUniforms(&normal.Uniforms)
	}
	if err == nil && a.gpuDraw {
		err = a.gpu.Draw()
	}
	if err != nil {
		rlog.L().Warn("relief: gpu sync failed, mirror disabled", "err", err)
		a.gpu.Destroy()
		a.gpu = nil
	}
}

func (a *App) drawHUD(ratio float64, p param.Params) {
	if a.hud == nil {
		return
	}
	stats := hud.Stats{
		FPS:        a.quality.State().MeasuredFPS,
		PixelRatio: ratio,
		Mode:       p.Mode,
		Strokes:    a.pen.Strokes(),
		ProbeReady: a.surface.Probe() != nil,
	}
	if _, err := a.hud.Draw(a.post.Screen().Image(), stats); err != nil {
		rlog.L().Warn("relief: hud disabled", "err", err)
		_ = a.hud.Close()
		a.hud = nil
	}
}

// Resize changes the viewport. The paper, both offscreen targets, the
// camera aspect, the post chain buffers and the GPU targets all take the
// new size before the next frame.
func (a *App) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidConfig, width, height)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}

	if err := a.paper.Resize(width, height); err != nil {
		return err
	}
	if err := a.compositor.Resize(width, height); err != nil {
		return err
	}
	a.surface.SetAspect(float32(width) / float32(height))
	if err := a.post.Resize(width, height); err != nil {
		return err
	}
	if a.gpu != nil {
		if err := a.gpu.Resize(width, height); err != nil {
			rlog.L().Warn("relief: gpu resize failed, mirror disabled", "err", err)
			a.gpu.Destroy()
			a.gpu = nil
		}
	}
	a.cfg.Width, a.cfg.Height = width, height
	rlog.L().Info("relief: resized", "width", width, "height", height)
	return nil
}

// Size returns the viewport size.
func (a *App) Size() (width, height int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Width, a.cfg.Height
}

// PointerDown starts a stroke at (x, y) in viewport pixels and lets the
// quality controller lower the pixel ratio if the frame rate is low.
func (a *App) PointerDown(x, y float64) error {
	a.quality.PointerDown()
	return a.pen.Down(x, y)
}

// PointerMove extends the active stroke.
func (a *App) PointerMove(x, y float64) error {
	return a.pen.Drag(x, y)
}

// PointerUp commits the active stroke and restores the idle pixel ratio.
func (a *App) PointerUp(x, y float64) error {
	a.quality.PointerUp()
	return a.pen.Up(x, y)
}

// Key handles a keyboard shortcut: a toggles 2D/3D display, u undoes, r
// redoes and c clears. It reports whether r was handled.
func (a *App) Key(r rune) (bool, error) {
	if r == 'a' {
		mode := a.params.ToggleMode()
		rlog.L().Debug("relief: display mode", "mode", mode)
		return true, nil
	}
	return a.pen.Key(r)
}

// Orbit rotates the camera around the relief by the given angles in
// radians.
func (a *App) Orbit(dAzimuth, dPolar float32) {
	a.mu.Lock()
	a.surface.Camera.Orbit(dAzimuth, dPolar)
	a.mu.Unlock()
}

// Zoom scales the camera distance. Factors below 1 move closer.
func (a *App) Zoom(factor float32) {
	a.mu.Lock()
	a.surface.Camera.Zoom(factor)
	a.mu.Unlock()
}

// Params returns the live parameter store.
func (a *App) Params() *param.Store { return a.params }

// Pen returns the stroke editor.
func (a *App) Pen() *pen.Pen { return a.pen }

// Quality returns the current pixel ratio and measured frame rate.
func (a *App) Quality() quality.State { return a.quality.State() }

// Frames returns the number of frames drawn and skipped so far.
func (a *App) Frames() (drawn, skipped uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames, a.skipped
}

// Screen returns the last frame at the physical resolution. The image is
// owned by the App and overwritten by the next Frame.
func (a *App) Screen() *image.RGBA {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.post.Screen().Image()
}

// Present scales the last frame into dst.
func (a *App) Present(dst draw.Image) {
	a.mu.Lock()
	defer a.mu.Unlock()
	src := a.post.Screen().Image()
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}

// NormalMap returns the packed normal map of the last frame.
func (a *App) NormalMap() *image.RGBA {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.compositor.NormalMap().Image()
}

// AlphaMap returns the alpha mask of the last frame.
func (a *App) AlphaMap() *image.RGBA {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.compositor.AlphaMap().Image()
}

// Paper returns a copy of the current paper.
func (a *App) Paper() *image.RGBA { return a.paper.Snapshot() }

// Close stops the probe loader and any running Run, then releases every
// resource. Frames after Close are skipped.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.cancel()

	var errs []error
	if a.gpu != nil {
		a.gpu.Destroy()
		a.gpu = nil
	}
	if a.hud != nil {
		errs = append(errs, a.hud.Close())
		a.hud = nil
	}
	errs = append(errs, a.paper.Close())
	a.pool.Close()
	return errors.Join(errs...)
}
