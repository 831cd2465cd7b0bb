package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/openfluke/gaze/tensor"
)

// activate applies the activation function to a single value.
func activate(v float32, activation ActivationType) float32 {
	switch activation {
	case ActivationReLU:
		if v < 0 {
			return 0
		}
		return v
	case ActivationSigmoid:
		return 1.0 / (1.0 + float32(math.Exp(float64(-v))))
	case ActivationTanh:
		return float32(math.Tanh(float64(v)))
	case ActivationLeakyReLU:
		if v < 0 {
			return v * 0.1
		}
		return v
	default:
		return v
	}
}

// InitConv2D initializes a Conv2D layer with He-initialized kernel
// weights and zero biases.
func InitConv2D(
	name string,
	inputHeight, inputWidth, inputChannels int,
	kernelSize, stride, padding, filters int,
	activation ActivationType,
) LayerConfig {
	outputHeight := (inputHeight+2*padding-kernelSize)/stride + 1
	outputWidth := (inputWidth+2*padding-kernelSize)/stride + 1

	kernel := make([]float32, filters*kernelSize*kernelSize*inputChannels)
	stddev := float32(math.Sqrt(2.0 / float64(inputChannels*kernelSize*kernelSize)))
	for i := range kernel {
		kernel[i] = float32(rand.NormFloat64()) * stddev
	}

	return LayerConfig{
		Type:          LayerConv2D,
		Name:          name,
		Activation:    activation,
		KernelSize:    kernelSize,
		Stride:        stride,
		Padding:       padding,
		Filters:       filters,
		Kernel:        kernel,
		Bias:          make([]float32, filters),
		InputHeight:   inputHeight,
		InputWidth:    inputWidth,
		InputChannels: inputChannels,
		OutputHeight:  outputHeight,
		OutputWidth:   outputWidth,
	}
}

// InitDense initializes a Dense layer with He-initialized weights and
// zero biases.
func InitDense(name string, inputSize, outputSize int, activation ActivationType) LayerConfig {
	weights := make([]float32, inputSize*outputSize)
	stddev := float32(math.Sqrt(2.0 / float64(inputSize)))
	for i := range weights {
		weights[i] = float32(rand.NormFloat64()) * stddev
	}
	return LayerConfig{
		Type:       LayerDense,
		Name:       name,
		Activation: activation,
		InputSize:  inputSize,
		OutputSize: outputSize,
		Weights:    weights,
		Bias:       make([]float32, outputSize),
	}
}

// InitFlatten initializes a Flatten layer.
func InitFlatten(name string) LayerConfig {
	return LayerConfig{Type: LayerFlatten, Name: name}
}

// InitSoftmax initializes a standard Softmax layer.
func InitSoftmax(name string) LayerConfig {
	return LayerConfig{Type: LayerSoftmax, Name: name}
}

// conv2DForward performs 2D convolution over an NHWC input.
// input shape: (batch, inputHeight, inputWidth, inputChannels)
// output shape: (batch, outputHeight, outputWidth, filters)
func conv2DForward(input *tensor.Tensor, config *LayerConfig) (*tensor.Tensor, error) {
	inH := config.InputHeight
	inW := config.InputWidth
	inC := config.InputChannels
	kSize := config.KernelSize
	stride := config.Stride
	padding := config.Padding
	filters := config.Filters
	outH := config.OutputHeight
	outW := config.OutputWidth

	if input.Rank() != 4 || input.Shape[1] != inH || input.Shape[2] != inW || input.Shape[3] != inC {
		return nil, fmt.Errorf("conv layer %q expects input (batch, %d, %d, %d), got %v",
			config.Name, inH, inW, inC, input.Shape)
	}
	batch := input.Shape[0]
	out := tensor.New(batch, outH, outW, filters)

	for b := 0; b < batch; b++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				for f := 0; f < filters; f++ {
					sum := config.Bias[f]
					for kh := 0; kh < kSize; kh++ {
						ih := oh*stride + kh - padding
						if ih < 0 || ih >= inH {
							continue
						}
						for kw := 0; kw < kSize; kw++ {
							iw := ow*stride + kw - padding
							if iw < 0 || iw >= inW {
								continue
							}
							inputIdx := ((b*inH+ih)*inW + iw) * inC
							kernelIdx := ((f*kSize+kh)*kSize + kw) * inC
							for ic := 0; ic < inC; ic++ {
								sum += input.Data[inputIdx+ic] * config.Kernel[kernelIdx+ic]
							}
						}
					}
					out.Data[((b*outH+oh)*outW+ow)*filters+f] = activate(sum, config.Activation)
				}
			}
		}
	}
	return out, nil
}

// denseForward performs a fully-connected pass over a flat input.
// input shape: (batch, inputSize), output shape: (batch, outputSize)
func denseForward(input *tensor.Tensor, config *LayerConfig) (*tensor.Tensor, error) {
	if input.Rank() != 2 || input.Shape[1] != config.InputSize {
		return nil, fmt.Errorf("dense layer %q expects input (batch, %d), got %v",
			config.Name, config.InputSize, input.Shape)
	}
	batch := input.Shape[0]
	inSize := config.InputSize
	outSize := config.OutputSize
	out := tensor.New(batch, outSize)

	for b := 0; b < batch; b++ {
		for o := 0; o < outSize; o++ {
			sum := config.Bias[o]
			for i := 0; i < inSize; i++ {
				sum += input.Data[b*inSize+i] * config.Weights[i*outSize+o]
			}
			out.Data[b*outSize+o] = activate(sum, config.Activation)
		}
	}
	return out, nil
}

// flattenForward collapses all per-sample axes into one.
func flattenForward(input *tensor.Tensor) *tensor.Tensor {
	batch := input.Shape[0]
	return input.Clone().Reshape(batch, input.Size()/batch)
}

// softmaxForward applies a numerically stable softmax over the last
// axis of the input.
func softmaxForward(input *tensor.Tensor) *tensor.Tensor {
	last := input.Shape[input.Rank()-1]
	rows := input.Size() / last
	out := tensor.New(input.Shape...)

	for r := 0; r < rows; r++ {
		base := r * last
		maxVal := input.Data[base]
		for i := 1; i < last; i++ {
			if input.Data[base+i] > maxVal {
				maxVal = input.Data[base+i]
			}
		}
		sum := float32(0)
		for i := 0; i < last; i++ {
			e := float32(math.Exp(float64(input.Data[base+i] - maxVal)))
			out.Data[base+i] = e
			sum += e
		}
		for i := 0; i < last; i++ {
			out.Data[base+i] /= sum
		}
	}
	return out
}
