// Package param holds the live tuning parameters of the relief pipeline.
//
// Parameters are addressed by the names a control panel binds to. Store.Set
// is the boundary: it rejects unknown names and out-of-range values, so the
// pipeline itself never validates. Each frame takes one snapshot with
// Store.Load and passes it explicitly to the stages that need it.
package param

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Errors returned by Store.Set and Store.Apply.
var (
	ErrUnknownParam = errors.New("param: unknown parameter")
	ErrOutOfRange   = errors.New("param: value out of range")
	ErrInvalidValue = errors.New("param: invalid value")
)

// Mode selects the display of the final image.
type Mode string

const (
	// Mode3D shows the lit relief surface.
	Mode3D Mode = "3d"

	// Mode2D shows the flat ink mask tinted with the brush color.
	Mode2D Mode = "2d"
)

// Params is one consistent set of parameter values.
type Params struct {
	StrokeWidth float64 `toml:"stroke_width" yaml:"stroke_width"`
	Smoothing   float64 `toml:"smoothing" yaml:"smoothing"`
	BlurRadius  float64 `toml:"blur_radius" yaml:"blur_radius"`
	Threshold   float64 `toml:"threshold" yaml:"threshold"`
	Metalness   float64 `toml:"metalness" yaml:"metalness"`
	Roughness   float64 `toml:"roughness" yaml:"roughness"`
	Exposure    float64 `toml:"exposure" yaml:"exposure"`
	BrushColor  string  `toml:"brush_color" yaml:"brush_color"`
	Mode        Mode    `toml:"mode" yaml:"mode"`
}

// Defaults returns the startup parameter values.
func Defaults() Params {
	return Params{
		StrokeWidth: 23,
		Smoothing:   5,
		BlurRadius:  33,
		Threshold:   0.3,
		Metalness:   1,
		Roughness:   0,
		Exposure:    2,
		BrushColor:  "#8e8e8e",
		Mode:        Mode3D,
	}
}

// MaxThreshold is the highest accepted ink cutoff. Above it the per-channel
// band cutoff+0.2 passes 1, so blank paper would count as ink.
const MaxThreshold = 0.79

// Range describes a numeric parameter.
type Range struct {
	Name           string
	Min, Max, Step float64
	field          func(*Params) *float64
}

var ranges = []Range{
	{Name: "strokeWidth", Min: 1, Max: 100, Step: 1, field: func(p *Params) *float64 { return &p.StrokeWidth }},
	{Name: "smoothing", Min: 0, Max: 20, Step: 1, field: func(p *Params) *float64 { return &p.Smoothing }},
	{Name: "blurRadius", Min: 20, Max: 80, Step: 1, field: func(p *Params) *float64 { return &p.BlurRadius }},
	{Name: "threshold", Min: 0, Max: MaxThreshold, Step: 0.01, field: func(p *Params) *float64 { return &p.Threshold }},
	{Name: "metalness", Min: 0, Max: 1, Step: 0.01, field: func(p *Params) *float64 { return &p.Metalness }},
	{Name: "roughness", Min: 0, Max: 1, Step: 0.01, field: func(p *Params) *float64 { return &p.Roughness }},
	{Name: "exposure", Min: 0, Max: 10, Step: 0.01, field: func(p *Params) *float64 { return &p.Exposure }},
}

// Ranges returns the numeric parameters with their bounds.
func Ranges() []Range {
	return append([]Range(nil), ranges...)
}

// Names returns every parameter name accepted by Set.
func Names() []string {
	names := make([]string, 0, len(ranges)+2)
	for _, r := range ranges {
		names = append(names, r.Name)
	}
	return append(names, "brushColor", "mode")
}

// set validates value and stores it into p.
func (p *Params) set(name string, value any) error {
	for _, r := range ranges {
		if r.Name != name {
			continue
		}
		v, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("%w: %s = %v", ErrInvalidValue, name, value)
		}
		if v < r.Min || v > r.Max {
			return fmt.Errorf("%w: %s = %v not in [%v, %v]", ErrOutOfRange, name, v, r.Min, r.Max)
		}
		*r.field(p) = v
		return nil
	}

	switch name {
	case "brushColor":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: brushColor = %v", ErrInvalidValue, value)
		}
		if _, err := colorful.Hex(s); err != nil {
			return fmt.Errorf("%w: brushColor = %q", ErrInvalidValue, s)
		}
		p.BrushColor = s
		return nil
	case "mode":
		m, err := parseMode(value)
		if err != nil {
			return err
		}
		p.Mode = m
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownParam, name)
}

// get returns the value of a named parameter.
func (p *Params) get(name string) any {
	for _, r := range ranges {
		if r.Name == name {
			return *r.field(p)
		}
	}
	switch name {
	case "brushColor":
		return p.BrushColor
	case "mode":
		return p.Mode
	}
	return nil
}

// LinearBrushColor returns the brush color as linear RGB. An unparsable
// color yields mid gray.
func (p Params) LinearBrushColor() (r, g, b float64) {
	c, err := colorful.Hex(p.BrushColor)
	if err != nil {
		return 0.5, 0.5, 0.5
	}
	return c.LinearRgb()
}

// Validate checks every field against its range.
func (p Params) Validate() error {
	var errs []error
	for _, name := range Names() {
		if err := p.set(name, p.get(name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func parseMode(value any) (Mode, error) {
	switch v := value.(type) {
	case Mode:
		value = string(v)
	case bool:
		if v {
			return Mode3D, nil
		}
		return Mode2D, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: mode = %v", ErrInvalidValue, value)
	}
	switch Mode(strings.ToLower(s)) {
	case Mode3D:
		return Mode3D, nil
	case Mode2D:
		return Mode2D, nil
	}
	return "", fmt.Errorf("%w: mode = %q", ErrInvalidValue, s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}
