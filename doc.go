// Package relief turns freehand ink into a lit pseudo-3D relief.
//
// # Overview
//
// Strokes painted with a pen land on a 2D paper raster. A blur stage
// softens the paper on its own timer and hands the result to the render
// loop through a single-producer/single-consumer slot. Every frame the
// offscreen compositor derives a normal map and an alpha mask from the
// latest blurred image, the surface renderer shades a plane with them
// under image based lighting, and the post chain anti-aliases, exposes and
// tone maps the result to the screen.
//
// # Quick Start
//
//	cfg := relief.DefaultConfig()
//	app, err := relief.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Close()
//
//	app.PointerDown(200, 200)
//	app.PointerMove(400, 260)
//	app.PointerUp(400, 260)
//
//	app.TickBlur()
//	app.Frame(time.Now())
//	img := app.Screen()
//
// Interactive hosts call Run, which drives the blur timer, the light probe
// loader and the params file watcher, and call Frame on every vertical
// sync.
//
// # Packages
//
//   - raster: the paper
//   - pen: stroke capture, smoothing, undo and redo
//   - blur: the timer driven blur stage
//   - texture: samplers and the handoff slot
//   - shader: the per-pixel programs and their WGSL sources
//   - render: targets, the offscreen compositor and the post chain
//   - surface: orbit camera and physically based plane shading
//   - envmap: light probes
//   - quality: FPS meter and adaptive pixel ratio
//   - gpu: device mirror of the pipeline resources
//   - hud: stats overlay
//   - param: live tuning parameters
//
// # Logging
//
// relief is silent by default. SetLogger enables structured logging through
// log/slog for relief and every sub-package.
package relief
