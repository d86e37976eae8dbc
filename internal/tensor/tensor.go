// Package tensor holds the normalized float32 image representation and the
// fixed-size buffer pool that recycles it across conversions.
package tensor

import (
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/blas/blas32"
)

// Image is a flat row-major, channel-interleaved normalized image: exactly
// Width*Height*Channels float32 values in [0, 1]. Instances usually come
// from a [Pool]; the holder owns Data exclusively until the image is written
// out or released back.
type Image struct {
	Width    int
	Height   int
	Channels int
	Data     []float32
}

// New allocates a zeroed image of the given geometry.
func New(width, height, channels int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]float32, width*height*channels),
	}
}

// Len returns the element count (width*height*channels).
func (im *Image) Len() int { return len(im.Data) }

// Vector returns a blas32 view sharing the underlying data.
func (im *Image) Vector() blas32.Vector {
	return blas32.Vector{N: len(im.Data), Inc: 1, Data: im.Data}
}

// Zero fills the image with zeros.
func (im *Image) Zero() {
	for i := range im.Data {
		im.Data[i] = 0
	}
}

// Min returns the smallest element, or 0 for an empty image.
func (im *Image) Min() float32 {
	if len(im.Data) == 0 {
		return 0
	}
	m := im.Data[0]
	for _, v := range im.Data[1:] {
		m = math32.Min(m, v)
	}
	return m
}

// Max returns the largest element, or 0 for an empty image.
func (im *Image) Max() float32 {
	if len(im.Data) == 0 {
		return 0
	}
	m := im.Data[0]
	for _, v := range im.Data[1:] {
		m = math32.Max(m, v)
	}
	return m
}

// Mean returns the average element value. Elements are normalized
// non-negative values, so the absolute-sum BLAS kernel is exact here.
func (im *Image) Mean() float32 {
	if len(im.Data) == 0 {
		return 0
	}
	return blas32.Asum(im.Vector()) / float32(len(im.Data))
}
