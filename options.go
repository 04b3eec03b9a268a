package relief

import (
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/relief/envmap"
)

// Option configures an App during creation.
//
// Example:
//
//	app, err := relief.New(cfg,
//	    relief.WithLogger(slog.Default()),
//	    relief.WithWorkers(4),
//	)
type Option func(*options)

// options holds optional App dependencies.
type options struct {
	logger   *slog.Logger
	workers  int
	provider gpucontext.DeviceProvider
	probe    *envmap.Probe
	hud      bool
	clock    func() time.Time
}

func defaultOptions() options {
	return options{clock: time.Now}
}

// WithLogger installs l as the process-wide logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithWorkers sets the number of shading workers. Zero or less uses
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithDeviceProvider mirrors the pipeline resources on the provider's GPU
// device. The provider must expose its HAL device and queue; otherwise the
// App logs a warning and renders on the CPU only.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithLightProbe uses an already decoded probe instead of loading
// Config.LightProbe.
func WithLightProbe(p *envmap.Probe) Option {
	return func(o *options) {
		o.probe = p
	}
}

// WithHUD enables the stats overlay regardless of Config.HUD.
func WithHUD() Option {
	return func(o *options) {
		o.hud = true
	}
}

// WithClock replaces the clock Run uses to timestamp frames.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}
