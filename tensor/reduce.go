package tensor

import (
	"gonum.org/v1/gonum/stat"
)

// InteriorMin reduces a (batch, interior..., channels) tensor to its
// per-batch-element, per-channel minimum over the interior axes,
// returning a (batch, channels) tensor.
func InteriorMin(t *Tensor) *Tensor {
	return reduceInterior(t, func(acc, v float32) float32 {
		if v < acc {
			return v
		}
		return acc
	})
}

// InteriorMax reduces a (batch, interior..., channels) tensor to its
// per-batch-element, per-channel maximum over the interior axes.
func InteriorMax(t *Tensor) *Tensor {
	return reduceInterior(t, func(acc, v float32) float32 {
		if v > acc {
			return v
		}
		return acc
	})
}

func reduceInterior(t *Tensor, fn func(acc, v float32) float32) *Tensor {
	batch := t.Shape[0]
	channels := t.Shape[len(t.Shape)-1]
	positions := t.Size() / (batch * channels)
	out := New(batch, channels)
	for b := 0; b < batch; b++ {
		base := b * positions * channels
		for c := 0; c < channels; c++ {
			acc := t.Data[base+c]
			for p := 1; p < positions; p++ {
				acc = fn(acc, t.Data[base+p*channels+c])
			}
			out.Data[b*channels+c] = acc
		}
	}
	return out
}

// ChannelDeviation computes the standard deviation of each channel over
// the interior axes of a (batch, interior..., channels) tensor,
// returning a (batch, channels) tensor. Used to rank feature maps by
// how much they vary spatially.
func ChannelDeviation(t *Tensor) *Tensor {
	batch := t.Shape[0]
	channels := t.Shape[len(t.Shape)-1]
	positions := t.Size() / (batch * channels)
	out := New(batch, channels)
	samples := make([]float64, positions)
	for b := 0; b < batch; b++ {
		base := b * positions * channels
		for c := 0; c < channels; c++ {
			for p := 0; p < positions; p++ {
				samples[p] = float64(t.Data[base+p*channels+c])
			}
			out.Data[b*channels+c] = float32(stat.StdDev(samples, nil))
		}
	}
	return out
}

// GatherChannels selects the given channel indices from the last axis
// of a (batch, interior..., channels) tensor.
func GatherChannels(t *Tensor, indices []int) *Tensor {
	channels := t.Shape[len(t.Shape)-1]
	rows := t.Size() / channels
	shape := append([]int(nil), t.Shape...)
	shape[len(shape)-1] = len(indices)
	out := New(shape...)
	for r := 0; r < rows; r++ {
		src := r * channels
		dst := r * len(indices)
		for j, c := range indices {
			out.Data[dst+j] = t.Data[src+c]
		}
	}
	return out
}

// NormalizeChannels rescales each (batch element, channel) slice of a
// (batch, interior..., channels) tensor into [0, 1] via min-max with an
// epsilon-guarded denominator. Constant channels collapse to zero.
func NormalizeChannels(t *Tensor) *Tensor {
	mins := InteriorMin(t)
	maxs := InteriorMax(t)
	batch := t.Shape[0]
	channels := t.Shape[len(t.Shape)-1]
	positions := t.Size() / (batch * channels)
	out := New(t.Shape...)
	for b := 0; b < batch; b++ {
		base := b * positions * channels
		for c := 0; c < channels; c++ {
			lo := mins.Data[b*channels+c]
			span := maxs.Data[b*channels+c] - lo + Epsilon
			for p := 0; p < positions; p++ {
				i := base + p*channels + c
				out.Data[i] = (t.Data[i] - lo) / span
			}
		}
	}
	return out
}

// Standardize rescales each batch element of a tensor so its minimum is
// zero and its maximum is (approximately) one.
func Standardize(t *Tensor) *Tensor {
	batch := t.Shape[0]
	inner := t.Size() / batch
	out := New(t.Shape...)
	for b := 0; b < batch; b++ {
		lo := t.Data[b*inner]
		hi := lo
		for i := 1; i < inner; i++ {
			v := t.Data[b*inner+i]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		span := hi - lo + Epsilon
		for i := 0; i < inner; i++ {
			out.Data[b*inner+i] = (t.Data[b*inner+i] - lo) / span
		}
	}
	return out
}
