// Package tensor provides the N-dimensional float32 arrays used by the
// gaze visualization pipeline.
//
// Layout is row-major with the batch axis first and, where a channel
// axis exists, the channel axis last (channels-last, as produced by the
// host model collaborator).
package tensor

import (
	"fmt"
)

// Epsilon guards division in normalization paths so constant channels
// do not produce NaN.
const Epsilon = 1e-7

// Tensor represents a multi-dimensional float32 array.
type Tensor struct {
	Data  []float32
	Shape []int
}

// New creates a zero-filled tensor with the given shape.
func New(shape ...int) *Tensor {
	return &Tensor{
		Data:  make([]float32, Numel(shape)),
		Shape: append([]int(nil), shape...),
	}
}

// FromSlice creates a tensor that copies data into the given shape.
// Panics if the data length does not match the shape.
func FromSlice(data []float32, shape ...int) *Tensor {
	if len(data) != Numel(shape) {
		panic(fmt.Sprintf("data length %d != shape numel %d", len(data), Numel(shape)))
	}
	d := make([]float32, len(data))
	copy(d, data)
	return &Tensor{Data: d, Shape: append([]int(nil), shape...)}
}

// Numel returns the total number of elements for a shape.
func Numel(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	return len(t.Data)
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.Shape)
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	d := make([]float32, len(t.Data))
	copy(d, t.Data)
	return &Tensor{Data: d, Shape: append([]int(nil), t.Shape...)}
}

// Reshape returns a view-copy with a new shape, or nil when the element
// count does not match.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	if Numel(shape) != len(t.Data) {
		return nil
	}
	return &Tensor{Data: t.Data, Shape: append([]int(nil), shape...)}
}

// Strides returns the row-major strides of the tensor.
func (t *Tensor) Strides() []int {
	strides := make([]int, len(t.Shape))
	stride := 1
	for i := len(t.Shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= t.Shape[i]
	}
	return strides
}

// At returns the element at a multi-index.
func (t *Tensor) At(idx ...int) float32 {
	return t.Data[t.offset(idx)]
}

// Set stores a value at a multi-index.
func (t *Tensor) Set(v float32, idx ...int) {
	t.Data[t.offset(idx)] = v
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("index rank %d != tensor rank %d", len(idx), len(t.Shape)))
	}
	off := 0
	strides := t.Strides()
	for i, x := range idx {
		if x < 0 || x >= t.Shape[i] {
			panic(fmt.Sprintf("index %d out of range for axis %d (size %d)", x, i, t.Shape[i]))
		}
		off += x * strides[i]
	}
	return off
}

// Batch returns the leading axis size, or 0 for a rank-0 tensor.
func (t *Tensor) Batch() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

// SliceBatch copies rows [from, to) along the batch axis.
func (t *Tensor) SliceBatch(from, to int) *Tensor {
	inner := t.Size() / t.Shape[0]
	shape := append([]int{to - from}, t.Shape[1:]...)
	out := New(shape...)
	copy(out.Data, t.Data[from*inner:to*inner])
	return out
}

// ConcatBatch concatenates tensors along the batch axis. All tensors
// must share the same trailing shape.
func ConcatBatch(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("cannot concat zero tensors")
	}
	inner := ts[0].Size() / ts[0].Shape[0]
	total := 0
	for _, t := range ts {
		if t.Size()/t.Shape[0] != inner {
			return nil, fmt.Errorf("concat shape mismatch: %v vs %v", ts[0].Shape, t.Shape)
		}
		total += t.Shape[0]
	}
	shape := append([]int{total}, ts[0].Shape[1:]...)
	out := New(shape...)
	off := 0
	for _, t := range ts {
		copy(out.Data[off:], t.Data)
		off += len(t.Data)
	}
	return out, nil
}

// Min returns the minimum value in the tensor.
func (t *Tensor) Min() float32 {
	if len(t.Data) == 0 {
		return 0
	}
	m := t.Data[0]
	for _, x := range t.Data {
		if x < m {
			m = x
		}
	}
	return m
}

// Max returns the maximum value in the tensor.
func (t *Tensor) Max() float32 {
	if len(t.Data) == 0 {
		return 0
	}
	m := t.Data[0]
	for _, x := range t.Data {
		if x > m {
			m = x
		}
	}
	return m
}

// Mean returns the mean of all elements.
func (t *Tensor) Mean() float32 {
	if len(t.Data) == 0 {
		return 0
	}
	sum := float32(0)
	for _, x := range t.Data {
		sum += x
	}
	return sum / float32(len(t.Data))
}
