package relief

import (
	"log/slog"

	"github.com/gogpu/gg"

	"github.com/gogpu/relief/internal/rlog"
)

// SetLogger configures the logger for relief, all its sub-packages and the
// gg drawing library. By default nothing is logged.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used by relief:
//   - [slog.LevelDebug]: per-tick and per-frame diagnostics (blur tick
//     skipped, frame skipped before the first blurred image)
//   - [slog.LevelInfo]: lifecycle events (probe loaded, GPU attached, resize)
//   - [slog.LevelWarn]: recovered failures (probe load failed, shader module
//     unavailable, params file rejected)
//
// Example:
//
//	relief.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	rlog.Set(l)
	gg.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return rlog.L()
}
