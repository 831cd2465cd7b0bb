package cam

import (
	"fmt"

	"github.com/openfluke/gaze/tensor"
)

// Score selects the output values that represent the activation signal
// being visualized. Apply receives one model output tensor and returns
// one value per batch element.
type Score interface {
	Apply(output *tensor.Tensor) ([]float32, error)
}

// ScoreFunc adapts a plain function to the Score interface.
type ScoreFunc func(output *tensor.Tensor) ([]float32, error)

// Apply calls the wrapped function.
func (f ScoreFunc) Apply(output *tensor.Tensor) ([]float32, error) {
	return f(output)
}

// InactiveScore contributes zero for every batch element. Use it to
// exclude an output head of a multi-output model from the weights.
type InactiveScore struct{}

// NewInactiveScore returns an always-zero score.
func NewInactiveScore() InactiveScore {
	return InactiveScore{}
}

// Apply returns zeros, one per batch element.
func (InactiveScore) Apply(output *tensor.Tensor) ([]float32, error) {
	if output.Rank() == 0 {
		return nil, fmt.Errorf("%w: output must have a batch axis", ErrInvalidShape)
	}
	return make([]float32, output.Shape[0]), nil
}

// BinaryScore scores a binary classification head: the raw value when
// the target is positive, its complement otherwise.
type BinaryScore struct {
	targets []bool
}

// NewBinaryScore builds a binary score for one target per batch
// element. A single target is broadcast across the batch.
func NewBinaryScore(targets ...bool) (*BinaryScore, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: at least one target value is required", ErrInvalidArgument)
	}
	return &BinaryScore{targets: append([]bool(nil), targets...)}, nil
}

// Apply expects output shaped (batch,) or (batch, 1).
func (s *BinaryScore) Apply(output *tensor.Tensor) ([]float32, error) {
	ok := output.Rank() == 1 || (output.Rank() == 2 && output.Shape[1] == 1)
	if !ok {
		return nil, fmt.Errorf("%w: output shape must be (batch,) or (batch, 1), but was %v", ErrInvalidShape, output.Shape)
	}
	batch := output.Shape[0]
	targets := s.targets
	if len(targets) == 1 && batch > 1 {
		targets = make([]bool, batch)
		for i := range targets {
			targets[i] = s.targets[0]
		}
	}
	if len(targets) != batch {
		return nil, fmt.Errorf("%w: %d target values for batch size %d", ErrInvalidArgument, len(targets), batch)
	}
	vals := make([]float32, batch)
	for i := 0; i < batch; i++ {
		v := output.Data[i]
		if targets[i] {
			vals[i] = v
		} else {
			vals[i] = 1 - v
		}
	}
	return vals, nil
}

// CategoricalScore scores a categorical classification head by
// selecting one channel index per batch element and averaging the
// selected values over any remaining interior axes.
type CategoricalScore struct {
	indices []int
}

// NewCategoricalScore builds a categorical score for one channel index
// per batch element. A single index is broadcast across the batch.
func NewCategoricalScore(indices ...int) (*CategoricalScore, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: at least one index is required", ErrInvalidArgument)
	}
	for _, idx := range indices {
		if idx < 0 {
			return nil, fmt.Errorf("%w: index %d must not be negative", ErrInvalidArgument, idx)
		}
	}
	return &CategoricalScore{indices: append([]int(nil), indices...)}, nil
}

// Apply expects output of rank 2 or more, (batch, ..., channels).
func (s *CategoricalScore) Apply(output *tensor.Tensor) ([]float32, error) {
	if output.Rank() < 2 {
		return nil, fmt.Errorf("%w: output rank must be 2 or more (batch, ..., channels), but was %d", ErrInvalidShape, output.Rank())
	}
	channels := output.Shape[output.Rank()-1]
	for _, idx := range s.indices {
		if idx >= channels {
			return nil, fmt.Errorf("%w: index %d for output with %d channels", ErrInvalidIndex, idx, channels)
		}
	}
	batch := output.Shape[0]
	indices := s.indices
	if len(indices) == 1 && batch > 1 {
		indices = make([]int, batch)
		for i := range indices {
			indices[i] = s.indices[0]
		}
	}
	if len(indices) != batch {
		return nil, fmt.Errorf("%w: %d indices for batch size %d", ErrInvalidArgument, len(indices), batch)
	}
	inner := output.Size() / batch
	positions := inner / channels
	vals := make([]float32, batch)
	for b := 0; b < batch; b++ {
		sum := float32(0)
		base := b * inner
		for p := 0; p < positions; p++ {
			sum += output.Data[base+p*channels+indices[b]]
		}
		vals[b] = sum / float32(positions)
	}
	return vals, nil
}
