package envmap

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/relief/texture"
)

// maxRGBEDim bounds the dimensions accepted from a radiance header.
const maxRGBEDim = 1 << 15

// decodeRGBE reads a Radiance .hdr file (32-bit RLE RGBE, -Y H +X W
// orientation) into linear floats.
func decodeRGBE(r *bufio.Reader) (*texture.Float, error) {
	magic, err := r.ReadString('\n')
	if err != nil || !strings.HasPrefix(magic, "#?") {
		return nil, fmt.Errorf("%w: missing signature", ErrRGBE)
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: header: %w", ErrRGBE, err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "FORMAT="); ok && v != "32-bit_rle_rgbe" {
			return nil, fmt.Errorf("%w: format %q", ErrRGBE, v)
		}
	}

	res, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: resolution: %w", ErrRGBE, err)
	}
	w, h, err := parseResolution(res)
	if err != nil {
		return nil, err
	}

	out := texture.NewFloat(w, h)
	line := make([]byte, w*4)
	for y := range h {
		if err := readScanline(r, line, w); err != nil {
			return nil, fmt.Errorf("%w: scanline %d: %w", ErrRGBE, y, err)
		}
		row := out.Pix[y*w*4 : (y+1)*w*4]
		for x := range w {
			rgbeToFloat(line[x*4:x*4+4], row[x*4:x*4+4])
		}
	}
	return out, nil
}

func parseResolution(s string) (int, int, error) {
	f := strings.Fields(s)
	if len(f) != 4 || f[0] != "-Y" || f[2] != "+X" {
		return 0, 0, fmt.Errorf("%w: unsupported orientation %q", ErrRGBE, strings.TrimSpace(s))
	}
	h, err1 := strconv.Atoi(f[1])
	w, err2 := strconv.Atoi(f[3])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 || w > maxRGBEDim || h > maxRGBEDim {
		return 0, 0, fmt.Errorf("%w: bad resolution %q", ErrRGBE, strings.TrimSpace(s))
	}
	return w, h, nil
}

// readScanline fills line with w RGBE pixels, handling both flat and
// new-style run length encoded scanlines.
func readScanline(r *bufio.Reader, line []byte, w int) error {
	head, err := r.Peek(4)
	if err != nil {
		return err
	}
	rle := w >= 8 && w < 0x8000 && head[0] == 2 && head[1] == 2 && head[2]&0x80 == 0
	if !rle {
		_, err := io.ReadFull(r, line)
		return err
	}
	if int(head[2])<<8|int(head[3]) != w {
		return fmt.Errorf("scanline width mismatch")
	}
	if _, err := r.Discard(4); err != nil {
		return err
	}

	// Channels are stored one after another, each run length encoded.
	for c := range 4 {
		for x := 0; x < w; {
			n, err := r.ReadByte()
			if err != nil {
				return err
			}
			if n > 128 {
				count := int(n) - 128
				if x+count > w {
					return fmt.Errorf("run overflows scanline")
				}
				v, err := r.ReadByte()
				if err != nil {
					return err
				}
				for range count {
					line[x*4+c] = v
					x++
				}
				continue
			}
			count := int(n)
			if count == 0 || x+count > w {
				return fmt.Errorf("bad literal run")
			}
			for range count {
				v, err := r.ReadByte()
				if err != nil {
					return err
				}
				line[x*4+c] = v
				x++
			}
		}
	}
	return nil
}

func rgbeToFloat(in []byte, out []float32) {
	if in[3] == 0 {
		out[0], out[1], out[2], out[3] = 0, 0, 0, 1
		return
	}
	f := float32(math.Ldexp(1, int(in[3])-136))
	out[0] = float32(in[0]) * f
	out[1] = float32(in[1]) * f
	out[2] = float32(in[2]) * f
	out[3] = 1
}

// encodeRGBE writes f as a flat (unencoded) Radiance file.
func encodeRGBE(w io.Writer, f *texture.Float) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y %d +X %d\n", f.Height, f.Width)
	px := make([]byte, 4)
	for i := 0; i < len(f.Pix); i += 4 {
		floatToRGBE(f.Pix[i:i+3], px)
		buf.Write(px)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func floatToRGBE(in []float32, out []byte) {
	v := max(in[0], in[1], in[2])
	if v < 1e-32 {
		out[0], out[1], out[2], out[3] = 0, 0, 0, 0
		return
	}
	frac, exp := math.Frexp(float64(v))
	scale := frac * 256 / float64(v)
	out[0] = byte(float64(in[0]) * scale)
	out[1] = byte(float64(in[1]) * scale)
	out[2] = byte(float64(in[2]) * scale)
	out[3] = byte(exp + 128)
}
