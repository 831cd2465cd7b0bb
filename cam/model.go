package cam

import (
	"fmt"

	"github.com/openfluke/gaze/tensor"
)

// ActivationFunc runs a partial forward pass and returns the
// intermediate activation tensor at the extracted layer, shaped
// (batch, spatial..., channels).
type ActivationFunc func(inputs []*tensor.Tensor) (*tensor.Tensor, error)

// Model is the host-model collaborator the engine explains. Predict
// must run in inference mode and chunk internally by batchSize.
type Model interface {
	NumInputs() int
	NumOutputs() int
	Predict(inputs []*tensor.Tensor, batchSize int) ([]*tensor.Tensor, error)
	ExtractActivations(layer LayerRef, seekConv bool) (ActivationFunc, error)
}

// MixedPrecisionModel is optionally implemented by models whose layers
// compute in a reduced precision. When MixedPrecision reports true the
// engine passes the penultimate activation through the cast hook before
// any numeric work.
type MixedPrecisionModel interface {
	MixedPrecision() bool
	CastToVariableDType(t *tensor.Tensor) *tensor.Tensor
}

// LayerRef identifies the layer whose activations seed the masks. The
// zero value refers to the last layer.
type LayerRef struct {
	name   string
	index  int
	byName bool
	set    bool
}

// ByIndex references a layer by index; negative values count back from
// the last layer.
func ByIndex(i int) LayerRef {
	return LayerRef{index: i, set: true}
}

// ByName references a layer by its name.
func ByName(name string) LayerRef {
	return LayerRef{name: name, byName: true, set: true}
}

// Resolve maps the reference onto a concrete layer index. byName looks
// a layer index up by name and may be nil for models without named
// layers.
func (r LayerRef) Resolve(numLayers int, byName func(string) (int, bool)) (int, error) {
	if numLayers == 0 {
		return 0, fmt.Errorf("%w: model has no layers", ErrInvalidArgument)
	}
	if r.byName {
		if byName == nil {
			return 0, fmt.Errorf("%w: model does not support layer lookup by name", ErrInvalidArgument)
		}
		if i, ok := byName(r.name); ok {
			return i, nil
		}
		return 0, fmt.Errorf("%w: no layer named %q", ErrInvalidArgument, r.name)
	}
	idx := r.index
	if !r.set {
		idx = -1
	}
	if idx < 0 {
		idx += numLayers
	}
	if idx < 0 || idx >= numLayers {
		return 0, fmt.Errorf("%w: layer index %d out of range for %d layers", ErrInvalidArgument, r.index, numLayers)
	}
	return idx, nil
}
