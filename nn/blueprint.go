package nn

import (
	"encoding/json"

	"github.com/openfluke/gaze/tensor"
)

// LayerSummary contains metadata about a specific layer.
type LayerSummary struct {
	Index       int    `json:"index"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"`
	Activation  string `json:"activation,omitempty"`
	Parameters  int    `json:"parameters"`
	OutputShape []int  `json:"output_shape,omitempty"`
}

// NetworkBlueprint is a portable summary of a network's structure.
type NetworkBlueprint struct {
	TotalLayers int            `json:"total_layers"`
	TotalParams int            `json:"total_parameters"`
	InputShape  []int          `json:"input_shape"`
	Layers      []LayerSummary `json:"layers"`
}

// Blueprint extracts a structural summary of the network, including
// per-sample output shapes propagated through the layer stack.
func (n *Network) Blueprint() NetworkBlueprint {
	bp := NetworkBlueprint{
		TotalLayers: len(n.Layers),
		InputShape:  append([]int(nil), n.InputShape...),
		Layers:      make([]LayerSummary, 0, len(n.Layers)),
	}

	shape := append([]int(nil), n.InputShape...)
	for i := range n.Layers {
		config := &n.Layers[i]
		shape = outputShape(config, shape)
		params := len(config.Kernel) + len(config.Weights) + len(config.Bias)
		bp.Layers = append(bp.Layers, LayerSummary{
			Index:       i,
			Name:        config.Name,
			Type:        typeName(config.Type),
			Activation:  activationName(config.Activation),
			Parameters:  params,
			OutputShape: shape,
		})
		bp.TotalParams += params
	}
	return bp
}

// BlueprintJSON renders the blueprint as indented JSON.
func (n *Network) BlueprintJSON() (string, error) {
	raw, err := json.MarshalIndent(n.Blueprint(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// outputShape computes the per-sample output shape of a layer given its
// per-sample input shape.
func outputShape(config *LayerConfig, in []int) []int {
	switch config.Type {
	case LayerConv2D:
		return []int{config.OutputHeight, config.OutputWidth, config.Filters}
	case LayerDense:
		return []int{config.OutputSize}
	case LayerFlatten:
		return []int{tensor.Numel(in)}
	default:
		return append([]int(nil), in...)
	}
}

func typeName(t LayerType) string {
	switch t {
	case LayerDense:
		return "dense"
	case LayerConv2D:
		return "conv2d"
	case LayerFlatten:
		return "flatten"
	case LayerSoftmax:
		return "softmax"
	default:
		return "unknown"
	}
}

func activationName(a ActivationType) string {
	switch a {
	case ActivationReLU:
		return "relu"
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationTanh:
		return "tanh"
	case ActivationLeakyReLU:
		return "leaky_relu"
	default:
		return ""
	}
}
