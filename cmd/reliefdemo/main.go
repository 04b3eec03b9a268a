// Command reliefdemo renders a scripted drawing through the relief
// pipeline and writes the result as PNG.
//
// Usage:
//
//	reliefdemo [-config relief.toml] [-script wave] [-frames 30] [-out relief.png]
//
// With -watch the pipeline keeps running for the given duration, so that a
// params file named in the config can be edited live.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/gogpu/relief"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reliefdemo:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "TOML or YAML config file")
		width      = flag.Int("width", 0, "viewport width (overrides config)")
		height     = flag.Int("height", 0, "viewport height (overrides config)")
		script     = flag.String("script", "wave", "stroke script: wave, circle, spiral or none")
		frames     = flag.Int("frames", 30, "frames to render")
		orbit      = flag.Float64("orbit", 0.01, "camera azimuth step per frame, radians")
		probe      = flag.String("probe", "", "light probe image (overrides config)")
		hud        = flag.Bool("hud", false, "draw the stats overlay")
		watch      = flag.Duration("watch", 0, "keep running for this long, applying params file changes")
		output     = flag.String("out", "relief.png", "output image")
		normalOut  = flag.String("normal", "", "also write the normal map here")
		alphaOut   = flag.String("alpha", "", "also write the alpha mask here")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := relief.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = relief.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}
	if *probe != "" {
		cfg.LightProbe = *probe
	}
	cfg.HUD = cfg.HUD || *hud
	if *watch > 0 && cfg.FrameInterval == 0 {
		cfg.FrameInterval = relief.Duration(16 * time.Millisecond)
	}

	app, err := relief.New(cfg, relief.WithLogger(logger))
	if err != nil {
		return err
	}
	defer app.Close()

	strokes, err := scriptStrokes(*script, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	for _, s := range strokes {
		if err := drawStroke(app, s); err != nil {
			return fmt.Errorf("stroke: %w", err)
		}
	}
	app.TickBlur()

	if *watch > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, *watch)
		defer cancel()
		logger.Info("running", "for", *watch, "params", cfg.ParamsFile)
		if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if err := renderFrames(app, *frames, float32(*orbit)); err != nil {
		return err
	}

	if err := savePNG(*output, app.Screen()); err != nil {
		return err
	}
	if *normalOut != "" {
		if err := savePNG(*normalOut, app.NormalMap()); err != nil {
			return err
		}
	}
	if *alphaOut != "" {
		if err := savePNG(*alphaOut, app.AlphaMap()); err != nil {
			return err
		}
	}
	q := app.Quality()
	logger.Info("done", "out", *output, "fps", math.Round(q.MeasuredFPS), "ratio", q.PixelRatio)
	return nil
}

// renderFrames renders n frames on a simulated 60 Hz clock, orbiting the
// camera a little each frame.
func renderFrames(app *relief.App, n int, orbit float32) error {
	if n <= 0 {
		return nil
	}
	bar := progressbar.Default(int64(n), "rendering")
	defer bar.Close()

	clock := time.Now()
	drawn := 0
	for range n {
		clock = clock.Add(time.Second / 60)
		if app.Frame(clock) {
			drawn++
		}
		app.Orbit(orbit, 0)
		_ = bar.Add(1)
	}
	if drawn == 0 {
		return errors.New("no frame was drawn")
	}
	return nil
}

func drawStroke(app *relief.App, pts []image.Point) error {
	if len(pts) == 0 {
		return nil
	}
	first, last := pts[0], pts[len(pts)-1]
	if err := app.PointerDown(float64(first.X), float64(first.Y)); err != nil {
		return err
	}
	for _, p := range pts[1:] {
		if err := app.PointerMove(float64(p.X), float64(p.Y)); err != nil {
			return err
		}
	}
	return app.PointerUp(float64(last.X), float64(last.Y))
}

// scriptStrokes returns the pointer paths of a named drawing scaled to the
// viewport.
func scriptStrokes(name string, w, h int) ([][]image.Point, error) {
	fw, fh := float64(w), float64(h)
	cx, cy := fw/2, fh/2
	sample := func(n int, f func(t float64) (float64, float64)) []image.Point {
		pts := make([]image.Point, 0, n+1)
		for i := range n + 1 {
			x, y := f(float64(i) / float64(n))
			pts = append(pts, image.Pt(int(math.Round(x)), int(math.Round(y))))
		}
		return pts
	}

	switch name {
	case "none":
		return nil, nil
	case "wave":
		return [][]image.Point{
			sample(80, func(t float64) (float64, float64) {
				return fw * (0.1 + 0.8*t), cy + fh*0.15*math.Sin(t*4*math.Pi)
			}),
			sample(40, func(t float64) (float64, float64) {
				return fw * (0.3 + 0.4*t), fh * 0.25
			}),
		}, nil
	case "circle":
		r := math.Min(fw, fh) * 0.3
		return [][]image.Point{
			sample(90, func(t float64) (float64, float64) {
				a := t * 2 * math.Pi
				return cx + r*math.Cos(a), cy + r*math.Sin(a)
			}),
		}, nil
	case "spiral":
		r := math.Min(fw, fh) * 0.4
		return [][]image.Point{
			sample(160, func(t float64) (float64, float64) {
				a := t * 6 * math.Pi
				return cx + r*t*math.Cos(a), cy + r*t*math.Sin(a)
			}),
		}, nil
	}
	return nil, fmt.Errorf("unknown script %q", name)
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
