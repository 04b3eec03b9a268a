package relief

import (
	"errors"
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/gogpu/relief/blur"
	"github.com/gogpu/relief/internal/fileconf"
	"github.com/gogpu/relief/param"
	"github.com/gogpu/relief/quality"
	"github.com/gogpu/relief/shader"
	"github.com/gogpu/relief/surface"
)

// Errors returned by LoadConfig, New and App methods.
var (
	ErrConfigFormat  = errors.New("relief: unsupported config format")
	ErrInvalidConfig = errors.New("relief: invalid config")
	ErrClosed        = errors.New("relief: app closed")
)

// Duration is a time.Duration written as a string ("30ms") in config files.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("relief: duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// CameraConfig is the initial orbit camera.
type CameraConfig struct {
	FOV      float64 `toml:"fov" yaml:"fov"`
	Near     float64 `toml:"near" yaml:"near"`
	Far      float64 `toml:"far" yaml:"far"`
	Distance float64 `toml:"distance" yaml:"distance"`
}

// Config is the startup configuration of an App.
type Config struct {
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`

	// BlurInterval is the blur tick period.
	BlurInterval Duration `toml:"blur_interval" yaml:"blur_interval"`

	// FrameInterval makes Run render frames itself. Zero leaves frame
	// pacing to the host, which calls Frame on its own clock.
	FrameInterval Duration `toml:"frame_interval" yaml:"frame_interval"`

	// FPSWindow is the frame rate sampling window.
	FPSWindow Duration `toml:"fps_window" yaml:"fps_window"`

	InitialPixelRatio float64          `toml:"initial_pixel_ratio" yaml:"initial_pixel_ratio"`
	IdlePixelRatio    float64          `toml:"idle_pixel_ratio" yaml:"idle_pixel_ratio"`
	Buckets           []quality.Bucket `toml:"buckets" yaml:"buckets"`

	// NormalStep is the texel distance of the normal reconstruction taps.
	NormalStep float64 `toml:"normal_step" yaml:"normal_step"`

	Camera CameraConfig `toml:"camera" yaml:"camera"`

	// Background is the sRGB hex color around the relief plane.
	Background string `toml:"background" yaml:"background"`

	// LightProbe is an equirectangular image (.hdr, PNG, JPEG, BMP, TIFF
	// or WebP). Empty uses the built-in studio probe.
	LightProbe string `toml:"light_probe" yaml:"light_probe"`

	// ParamsFile is watched by Run and applied on every write.
	ParamsFile string `toml:"params_file" yaml:"params_file"`

	HUD    bool         `toml:"hud" yaml:"hud"`
	Params param.Params `toml:"params" yaml:"params"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Width:             960,
		Height:            640,
		BlurInterval:      Duration(blur.DefaultInterval),
		FPSWindow:         Duration(quality.DefaultWindow),
		InitialPixelRatio: quality.DefaultInitialRatio,
		IdlePixelRatio:    quality.DefaultIdleRatio,
		Buckets:           append([]quality.Bucket(nil), quality.DefaultBuckets...),
		NormalStep:        float64(shader.DefaultNormalStep),
		Camera: CameraConfig{
			FOV:      surface.DefaultFOV,
			Near:     surface.DefaultNear,
			Far:      surface.DefaultFar,
			Distance: surface.DefaultDistance,
		},
		Background: "#000000",
		Params:     param.Defaults(),
	}
}

// LoadConfig reads a TOML or YAML config file over DefaultConfig. The
// format follows the extension: .toml, .yaml or .yml.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := fileconf.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fileconf.ErrFormat) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigFormat, path)
		}
		return cfg, fmt.Errorf("relief: load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: viewport %dx%d", ErrInvalidConfig, c.Width, c.Height))
	}
	if c.BlurInterval < 0 || c.FrameInterval < 0 || c.FPSWindow < 0 {
		errs = append(errs, fmt.Errorf("%w: negative interval", ErrInvalidConfig))
	}
	if c.InitialPixelRatio < 0 || c.IdlePixelRatio < 0 {
		errs = append(errs, fmt.Errorf("%w: negative pixel ratio", ErrInvalidConfig))
	}
	if c.NormalStep <= 0 {
		errs = append(errs, fmt.Errorf("%w: normal_step %v", ErrInvalidConfig, c.NormalStep))
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 || c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("%w: camera %+v", ErrInvalidConfig, c.Camera))
	}
	if _, err := colorful.Hex(c.Background); err != nil {
		errs = append(errs, fmt.Errorf("%w: background %q", ErrInvalidConfig, c.Background))
	}
	if err := c.Params.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

// linearBackground returns Background as linear RGB, black if invalid.
func (c Config) linearBackground() (r, g, b float32) {
	col, err := colorful.Hex(c.Background)
	if err != nil {
		return 0, 0, 0
	}
	lr, lg, lb := col.LinearRgb()
	return float32(lr), float32(lg), float32(lb)
}
