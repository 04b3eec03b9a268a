package shader

import "embed"

//go:embed wgsl/*.wgsl
var sources embed.FS

func mustSource(name string) string {
	b, err := sources.ReadFile("wgsl/" + name)
	if err != nil {
		panic("shader: missing embedded source " + name)
	}
	return string(b)
}

var (
	normalSource  = mustSource("normal.wgsl")
	alphaSource   = mustSource("alpha.wgsl")
	fxaaSource    = mustSource("fxaa.wgsl")
	tonemapSource = mustSource("tonemap.wgsl")
)
