// Package nn provides a minimal sequential network executor used as the
// reference host model for the cam engine. It supports Conv2D, Dense,
// Flatten and Softmax layers on CPU with channels-last (NHWC) layout,
// inference only.
package nn

// ActivationType defines the activation function used in a layer.
type ActivationType int

const (
	ActivationNone      ActivationType = 0 // identity
	ActivationReLU      ActivationType = 1 // max(0, v)
	ActivationSigmoid   ActivationType = 2 // 1 / (1 + exp(-v))
	ActivationTanh      ActivationType = 3 // tanh(v)
	ActivationLeakyReLU ActivationType = 4 // v if v >= 0, else v * 0.1
)

// LayerType defines the type of network layer.
type LayerType int

const (
	LayerDense   LayerType = 0 // Fully-connected layer
	LayerConv2D  LayerType = 1 // 2D convolutional layer
	LayerFlatten LayerType = 2 // Collapse per-sample axes to one
	LayerSoftmax LayerType = 3 // Softmax over the last axis
)

// LayerConfig holds the configuration and parameters of one layer.
type LayerConfig struct {
	Type       LayerType
	Name       string
	Activation ActivationType

	// Conv2D parameters
	KernelSize int       // Kernel side length (e.g. 3 for 3x3)
	Stride     int       // Convolution stride
	Padding    int       // Zero padding on each side
	Filters    int       // Number of output channels
	Kernel     []float32 // Weights [filters][kernelH][kernelW][inChannels]

	// Conv2D shape information
	InputHeight   int
	InputWidth    int
	InputChannels int
	OutputHeight  int
	OutputWidth   int

	// Dense parameters
	InputSize  int
	OutputSize int
	Weights    []float32 // Weights [inputSize][outputSize]

	// Bias terms: [filters] for Conv2D, [outputSize] for Dense
	Bias []float32
}

// Network is a sequential stack of layers over a single input and a
// single output head.
type Network struct {
	Layers []LayerConfig

	// InputShape is the per-sample input shape without the batch axis,
	// e.g. (height, width, channels) for an image model.
	InputShape []int
}

// NewNetwork creates a sequential network for the given per-sample
// input shape.
func NewNetwork(inputShape []int, layers ...LayerConfig) *Network {
	return &Network{
		Layers:     layers,
		InputShape: append([]int(nil), inputShape...),
	}
}

// NumInputs returns the number of model inputs.
func (n *Network) NumInputs() int { return 1 }

// NumOutputs returns the number of model output heads.
func (n *Network) NumOutputs() int { return 1 }

// InputShapes returns the per-sample shape of each model input.
func (n *Network) InputShapes() [][]int {
	return [][]int{append([]int(nil), n.InputShape...)}
}
