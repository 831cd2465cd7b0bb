package nn

import (
	"errors"
	"fmt"

	"github.com/openfluke/gaze/cam"
	"github.com/openfluke/gaze/tensor"
)

// ErrNoConvLayer is returned when a convolutional layer was requested
// but none exists at or before the referenced layer.
var ErrNoConvLayer = errors.New("no convolutional layer found")

// ResolveLayer maps a layer reference onto a concrete layer index.
func (n *Network) ResolveLayer(ref cam.LayerRef) (int, error) {
	return ref.Resolve(len(n.Layers), n.layerIndexByName)
}

func (n *Network) layerIndexByName(name string) (int, bool) {
	for i := range n.Layers {
		if n.Layers[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// IsConvolutional reports whether layer i is a convolutional layer.
func (n *Network) IsConvolutional(i int) bool {
	return i >= 0 && i < len(n.Layers) && n.Layers[i].Type == LayerConv2D
}

// Predecessors returns the indices feeding into layer i. The network is
// sequential, so this is at most the previous layer.
func (n *Network) Predecessors(i int) []int {
	if i <= 0 || i >= len(n.Layers) {
		return nil
	}
	return []int{i - 1}
}

// ExtractActivations returns a forward function that stops at the
// referenced layer. When seekConv is set and the resolved layer is not
// convolutional, the nearest convolutional layer toward the input is
// used instead; if none exists the call fails.
func (n *Network) ExtractActivations(ref cam.LayerRef, seekConv bool) (cam.ActivationFunc, error) {
	idx, err := n.ResolveLayer(ref)
	if err != nil {
		return nil, err
	}
	if seekConv && !n.IsConvolutional(idx) {
		found := -1
		for i := idx; i >= 0; i = prev(n.Predecessors(i)) {
			if n.IsConvolutional(i) {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("%w at or before layer %d", ErrNoConvLayer, idx)
		}
		idx = found
	}
	cut := idx
	return func(inputs []*tensor.Tensor) (*tensor.Tensor, error) {
		if len(inputs) != 1 {
			return nil, fmt.Errorf("model has 1 input, got %d", len(inputs))
		}
		return n.forwardTo(inputs[0], cut)
	}, nil
}

func prev(predecessors []int) int {
	if len(predecessors) == 0 {
		return -1
	}
	return predecessors[0]
}
