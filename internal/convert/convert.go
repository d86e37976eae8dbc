// Package convert decodes source images into pooled, normalized float32
// tensors. Decoding and resampling sit behind the standard image codecs and
// the x/image scaler; the normalization itself has an unrolled fast path
// over the packed byte grid and a per-pixel fallback.
package convert

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	xdraw "golang.org/x/image/draw"

	"github.com/Andraszao/Image-Preprocessor/internal/tensor"
)

// ErrDecode marks per-image failures (missing, unreadable, or corrupt
// source files). These are non-fatal to a pipeline run.
var ErrDecode = errors.New("image decode failed")

const inv255 = float32(1) / 255

// Normalizer converts one image file at a time into a pooled normalized
// tensor of fixed geometry. It is not safe for concurrent use: the packed
// byte grid is a reused scratch buffer.
type Normalizer struct {
	width    int
	height   int
	channels int
	pool     *tensor.Pool
	scratch  []byte
}

// New returns a Normalizer producing width*height*channels tensors backed
// by pool. The pool must hold buffers of the same geometry.
func New(width, height, channels int, pool *tensor.Pool) *Normalizer {
	return &Normalizer{
		width:    width,
		height:   height,
		channels: channels,
		pool:     pool,
		scratch:  make([]byte, width*height*channels),
	}
}

// Convert decodes path, resamples to the configured dimensions when they
// differ, and returns a normalized tensor acquired from the pool. Ownership
// of the returned image transfers to the caller, who must Release it back
// once written or discarded.
func (n *Normalizer) Convert(path string) (*tensor.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	grid := n.toGrid(src)
	out := n.pool.Acquire()

	if n.channels == 3 {
		if packed, ok := n.packRGB(grid); ok {
			normalizeFast(packed, out.Data)
			return out, nil
		}
	}
	n.normalizeSlow(grid, out.Data)
	return out, nil
}

// toGrid forces src into an RGBA grid of exactly the target dimensions,
// resampling with a deterministic bilinear kernel when sizes differ.
func (n *Normalizer) toGrid(src image.Image) *image.RGBA {
	r := image.Rect(0, 0, n.width, n.height)
	dst := image.NewRGBA(r)
	if src.Bounds().Dx() != n.width || src.Bounds().Dy() != n.height {
		xdraw.ApproxBiLinear.Scale(dst, r, src, src.Bounds(), xdraw.Src, nil)
	} else {
		xdraw.Copy(dst, image.Point{}, src, src.Bounds(), xdraw.Src, nil)
	}
	return dst
}

// packRGB drops the alpha byte from the RGBA grid, producing the contiguous
// width*height*3 byte layout the fast path runs over. Returns ok=false when
// the grid is not in the expected contiguous form.
func (n *Normalizer) packRGB(grid *image.RGBA) ([]byte, bool) {
	w, h := n.width, n.height
	if grid.Stride != 4*w || grid.Bounds().Dx() != w || grid.Bounds().Dy() != h || len(grid.Pix) != 4*w*h {
		return nil, false
	}
	packed := n.scratch[:w*h*3]
	for px := 0; px < w*h; px++ {
		s, d := px*4, px*3
		packed[d] = grid.Pix[s]
		packed[d+1] = grid.Pix[s+1]
		packed[d+2] = grid.Pix[s+2]
	}
	return packed, len(packed) == w*h*3
}

// normalizeFast divides every byte by 255, four RGB pixels (12 bytes) per
// iteration, writing at the same linear offset. A scalar tail handles the
// final 0-3 pixels. Semantically identical to the per-pixel path.
func normalizeFast(src []byte, dst []float32) {
	i := 0
	for ; i+12 <= len(src); i += 12 {
		s := src[i : i+12 : i+12]
		d := dst[i : i+12 : i+12]
		d[0] = float32(s[0]) * inv255
		d[1] = float32(s[1]) * inv255
		d[2] = float32(s[2]) * inv255
		d[3] = float32(s[3]) * inv255
		d[4] = float32(s[4]) * inv255
		d[5] = float32(s[5]) * inv255
		d[6] = float32(s[6]) * inv255
		d[7] = float32(s[7]) * inv255
		d[8] = float32(s[8]) * inv255
		d[9] = float32(s[9]) * inv255
		d[10] = float32(s[10]) * inv255
		d[11] = float32(s[11]) * inv255
	}
	for ; i < len(src); i++ {
		dst[i] = float32(src[i]) * inv255
	}
}

// normalizeSlow walks the grid through the pixel accessors. Used for
// grayscale output and whenever the packed layout is unexpected.
func (n *Normalizer) normalizeSlow(grid image.Image, dst []float32) {
	b := grid.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if n.channels == 1 {
				g := color.GrayModel.Convert(grid.At(x, y)).(color.Gray)
				dst[i] = float32(g.Y) * inv255
				i++
				continue
			}
			r, g, bl, _ := grid.At(x, y).RGBA()
			dst[i] = float32(r>>8) * inv255
			dst[i+1] = float32(g>>8) * inv255
			dst[i+2] = float32(bl>>8) * inv255
			i += 3
		}
	}
}
