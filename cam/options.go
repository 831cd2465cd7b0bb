package cam

import "github.com/openfluke/gaze/tensor"

// Modifier transforms the combined map before standardization.
type Modifier func(t *tensor.Tensor) *tensor.Tensor

// Options controls an Explain call. Build with NewOptions and mutate;
// the zero value is not usable because MaxN of zero is rejected.
type Options struct {
	// PenultimateLayer selects where the model is cut for activation
	// extraction. The zero value means the last layer.
	PenultimateLayer LayerRef

	// SeekConvLayer searches backward for the nearest convolutional
	// layer when the resolved layer is not itself convolutional.
	SeekConvLayer bool

	// ActivationModifier post-processes the combined map. nil means
	// ReLUModifier; use IdentityModifier to disable.
	ActivationModifier Modifier

	// BatchSize chunks the bulk forward pass over the masked inputs.
	BatchSize int

	// MaxN caps the number of channels used as masks (Faster
	// Score-CAM). Negative derives a default cap from the channel
	// count; zero is an invalid argument; positive requests that cap.
	MaxN int

	// ExpandCAM resizes the result to each input's spatial shape.
	ExpandCAM bool

	// StandardizeCAM rescales each map to zero minimum and unit
	// maximum per batch element.
	StandardizeCAM bool
}

// NewOptions returns the default options: cut at the last layer with
// conv seeking on, ReLU modifier, batch size 32, no explicit channel
// cap, expand and standardize enabled.
func NewOptions() *Options {
	return &Options{
		SeekConvLayer:  true,
		BatchSize:      32,
		MaxN:           -1,
		ExpandCAM:      true,
		StandardizeCAM: true,
	}
}

// ReLUModifier clamps negative map values to zero.
func ReLUModifier(t *tensor.Tensor) *tensor.Tensor {
	out := t.Clone()
	for i, v := range out.Data {
		if v < 0 {
			out.Data[i] = 0
		}
	}
	return out
}

// IdentityModifier returns the map unchanged.
func IdentityModifier(t *tensor.Tensor) *tensor.Tensor {
	return t
}
