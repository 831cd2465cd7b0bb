package nn

import (
	"fmt"

	"github.com/openfluke/gaze/tensor"
)

// Forward runs a full inference pass over one input batch shaped
// (batch, InputShape...).
func (n *Network) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return n.forwardTo(input, len(n.Layers)-1)
}

// forwardTo runs layers 0..last inclusive and returns the activation
// tensor after layer last.
func (n *Network) forwardTo(input *tensor.Tensor, last int) (*tensor.Tensor, error) {
	if last < 0 || last >= len(n.Layers) {
		return nil, fmt.Errorf("layer index %d out of range for %d layers", last, len(n.Layers))
	}
	if err := n.checkInput(input); err != nil {
		return nil, err
	}

	current := input
	for i := 0; i <= last; i++ {
		config := &n.Layers[i]
		var err error
		switch config.Type {
		case LayerConv2D:
			current, err = conv2DForward(current, config)
		case LayerDense:
			current, err = denseForward(current, config)
		case LayerFlatten:
			current = flattenForward(current)
		case LayerSoftmax:
			current = softmaxForward(current)
		default:
			err = fmt.Errorf("unsupported layer type %d", config.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return current, nil
}

func (n *Network) checkInput(input *tensor.Tensor) error {
	if input == nil {
		return fmt.Errorf("input is nil")
	}
	if input.Rank() != len(n.InputShape)+1 {
		return fmt.Errorf("input rank %d does not match model input shape %v", input.Rank(), n.InputShape)
	}
	for i, d := range n.InputShape {
		if input.Shape[i+1] != d {
			return fmt.Errorf("input shape %v does not match model input shape %v", input.Shape[1:], n.InputShape)
		}
	}
	return nil
}

// Predict runs inference over one input batch, internally chunked by
// batchSize, and returns one tensor per output head. It satisfies the
// cam engine's bulk-prediction contract.
func (n *Network) Predict(inputs []*tensor.Tensor, batchSize int) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("model has 1 input, got %d", len(inputs))
	}
	input := inputs[0]
	if err := n.checkInput(input); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	total := input.Shape[0]
	chunks := make([]*tensor.Tensor, 0, (total+batchSize-1)/batchSize)
	for from := 0; from < total; from += batchSize {
		to := from + batchSize
		if to > total {
			to = total
		}
		out, err := n.Forward(input.SliceBatch(from, to))
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, out)
	}
	full, err := tensor.ConcatBatch(chunks)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{full}, nil
}
