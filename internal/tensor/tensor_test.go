package tensor

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestVector_AliasesData(t *testing.T) {
	im := New(2, 2, 3)
	v := im.Vector()
	if v.N != 12 || v.Inc != 1 {
		t.Fatalf("vector shape N=%d Inc=%d, want 12/1", v.N, v.Inc)
	}
	v.Data[0] = 0.75
	if im.Data[0] != 0.75 {
		t.Error("vector does not alias image data")
	}
}

func TestStats(t *testing.T) {
	im := New(1, 2, 2)
	copy(im.Data, []float32{0.2, 0.4, 0.6, 0.8})

	if got := im.Min(); got != 0.2 {
		t.Errorf("Min() = %v, want 0.2", got)
	}
	if got := im.Max(); got != 0.8 {
		t.Errorf("Max() = %v, want 0.8", got)
	}
	if got := im.Mean(); math32.Abs(got-0.5) > 1e-6 {
		t.Errorf("Mean() = %v, want 0.5", got)
	}
}

func TestStats_Empty(t *testing.T) {
	im := &Image{}
	if im.Min() != 0 || im.Max() != 0 || im.Mean() != 0 {
		t.Error("empty image stats should all be 0")
	}
}

func TestZero(t *testing.T) {
	im := New(2, 2, 1)
	for i := range im.Data {
		im.Data[i] = 1
	}
	im.Zero()
	for i, v := range im.Data {
		if v != 0 {
			t.Fatalf("Data[%d] = %v after Zero", i, v)
		}
	}
}
