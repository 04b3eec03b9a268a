package envmap

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"os"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/gogpu/relief/internal/parallel"
	"github.com/gogpu/relief/internal/rlog"
	"github.com/gogpu/relief/shader"
	"github.com/gogpu/relief/texture"
)

// MaxWidth caps the width of decoded low dynamic range probes. Wider images
// are downscaled before conversion.
const MaxWidth = 2048

// sniffLen is the header length filetype needs to identify images.
const sniffLen = 262

// Decode reads an equirectangular image. Radiance .hdr data is kept linear;
// other formats are treated as sRGB and converted to linear.
func Decode(r io.Reader) (*texture.Float, error) {
	br := bufio.NewReaderSize(r, 4096)
	head, err := br.Peek(sniffLen)
	if len(head) == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: %w", ErrEmpty, err)
	}
	if bytes.HasPrefix(head, []byte("#?")) {
		return decodeRGBE(br)
	}

	kind, _ := filetype.Match(head)
	if kind == filetype.Unknown || !filetype.IsImage(head) {
		return nil, fmt.Errorf("%w: unrecognized content", ErrFormat)
	}
	img, _, err := image.Decode(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, kind.Extension, err)
	}
	return fromLDR(img)
}

func fromLDR(img image.Image) (*texture.Float, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmpty
	}
	var rgba *image.RGBA
	if b.Dx() > MaxWidth {
		rgba = transform.Resize(img, MaxWidth, max(1, b.Dy()*MaxWidth/b.Dx()), transform.Linear)
	} else {
		rgba = clone.AsRGBA(img)
	}

	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	var lut [256]float32
	for i := range lut {
		lut[i] = shader.SRGBToLinear(float32(i) / 255)
	}
	out := texture.NewFloat(w, h)
	for y := range h {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		dst := out.Pix[y*w*4 : (y+1)*w*4]
		for i := 0; i < len(row); i += 4 {
			dst[i] = lut[row[i]]
			dst[i+1] = lut[row[i+1]]
			dst[i+2] = lut[row[i+2]]
			dst[i+3] = 1
		}
	}
	return out, nil
}

// Load decodes the file at path and builds a probe with DefaultLevels.
func Load(path string, pool *parallel.WorkerPool) (*Probe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	base, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("envmap: %s: %w", path, err)
	}
	p, err := NewProbe(base, DefaultLevels, pool)
	if err != nil {
		return nil, err
	}
	rlog.L().Info("envmap: probe loaded", "path", path,
		"width", base.Width, "height", base.Height, "levels", p.Levels())
	return p, nil
}

// Loader loads a probe in the background. Until it finishes, Probe returns
// nil and lighting from the environment is absent.
type Loader struct {
	done  chan struct{}
	once  sync.Once
	probe *Probe
	err   error
}

// LoadAsync starts loading path on a new goroutine. Cancelling ctx before
// the file is read abandons the load with ctx's error.
func LoadAsync(ctx context.Context, path string, pool *parallel.WorkerPool) *Loader {
	l := &Loader{done: make(chan struct{})}
	go func() {
		if err := ctx.Err(); err != nil {
			l.finish(nil, err)
			return
		}
		p, err := Load(path, pool)
		if err != nil {
			rlog.L().Warn("envmap: probe load failed, lighting disabled", "path", path, "err", err)
		}
		l.finish(p, err)
	}()
	return l
}

func (l *Loader) finish(p *Probe, err error) {
	l.once.Do(func() {
		l.probe, l.err = p, err
		close(l.done)
	})
}

// Probe returns the loaded probe, or nil while loading or after a failure.
func (l *Loader) Probe() *Probe {
	select {
	case <-l.done:
		return l.probe
	default:
		return nil
	}
}

// Wait blocks until the load finishes or ctx is done.
func (l *Loader) Wait(ctx context.Context) (*Probe, error) {
	select {
	case <-l.done:
		return l.probe, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
