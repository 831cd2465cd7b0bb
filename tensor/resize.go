package tensor

import (
	"fmt"
	"math"
)

// ZoomFactors computes the per-axis scale factors that resize src into
// dst, as dst/src per axis. The two shapes must have the same rank.
func ZoomFactors(src, dst []int) ([]float64, error) {
	if len(src) != len(dst) {
		return nil, fmt.Errorf("zoom factor rank mismatch: %v vs %v", src, dst)
	}
	factors := make([]float64, len(src))
	for i := range src {
		if src[i] == 0 {
			return nil, fmt.Errorf("zoom source axis %d has size 0", i)
		}
		factors[i] = float64(dst[i]) / float64(src[i])
	}
	return factors, nil
}

// Resize resamples a tensor by per-axis scale factors using
// nearest-neighbour interpolation. The output size of axis i is
// round(shape[i] * factors[i]), so factors produced by ZoomFactors
// recover the target shape exactly.
func Resize(t *Tensor, factors []float64) (*Tensor, error) {
	if len(factors) != len(t.Shape) {
		return nil, fmt.Errorf("resize factor rank %d != tensor rank %d", len(factors), len(t.Shape))
	}
	outShape := make([]int, len(t.Shape))
	for i, f := range factors {
		outShape[i] = int(math.Round(float64(t.Shape[i]) * f))
		if outShape[i] < 1 {
			outShape[i] = 1
		}
	}
	out := New(outShape...)
	srcStrides := t.Strides()
	idx := make([]int, len(outShape))
	for i := range out.Data {
		srcOff := 0
		for ax := range idx {
			s := int(math.Floor(float64(idx[ax]) / factors[ax]))
			if s >= t.Shape[ax] {
				s = t.Shape[ax] - 1
			}
			srcOff += s * srcStrides[ax]
		}
		out.Data[i] = t.Data[srcOff]

		// Advance the output multi-index (row-major).
		for ax := len(idx) - 1; ax >= 0; ax-- {
			idx[ax]++
			if idx[ax] < outShape[ax] {
				break
			}
			idx[ax] = 0
		}
	}
	return out, nil
}
