package cam

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/gaze/tensor"
)

// ScoreCAM computes score-weighted class activation maps for a host
// model. The engine keeps no state between calls; a single value may be
// shared by callers as long as the model's Predict is safe to share.
type ScoreCAM struct {
	model Model
}

// New creates a Score-CAM engine for the given model.
func New(model Model) *ScoreCAM {
	return &ScoreCAM{model: model}
}

// ExplainOne explains a single-input, single-output model and returns
// the one resulting map directly.
func (s *ScoreCAM) ExplainOne(score Score, seedInput *tensor.Tensor, opts *Options) (*tensor.Tensor, error) {
	maps, err := s.Explain([]Score{score}, []*tensor.Tensor{seedInput}, opts)
	if err != nil {
		return nil, err
	}
	return maps[0], nil
}

// Explain generates one class activation map per seed input (or a
// single map at the penultimate layer's native resolution when
// ExpandCAM is off). scores must hold one Score per model output and
// seedInputs one tensor per model input, each shaped
// (batch, spatial..., channels).
func (s *ScoreCAM) Explain(scores []Score, seedInputs []*tensor.Tensor, opts *Options) ([]*tensor.Tensor, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := s.validate(scores, seedInputs); err != nil {
		return nil, err
	}

	activate, err := s.model.ExtractActivations(opts.PenultimateLayer, opts.SeekConvLayer)
	if err != nil {
		return nil, err
	}
	penult, err := activate(seedInputs)
	if err != nil {
		return nil, err
	}
	if mp, ok := s.model.(MixedPrecisionModel); ok && mp.MixedPrecision() {
		penult = mp.CastToVariableDType(penult)
	}

	penult, err = subsampleChannels(penult, opts.MaxN)
	if err != nil {
		return nil, err
	}
	batch := penult.Shape[0]
	channels := penult.Shape[penult.Rank()-1]

	// Each channel becomes a soft mask over each input; the masked
	// copies are folded into one large batch, channel-major.
	masked := make([]*tensor.Tensor, len(seedInputs))
	for i, input := range seedInputs {
		factors, err := tensor.ZoomFactors(penult.Shape[:penult.Rank()-1], input.Shape[:input.Rank()-1])
		if err != nil {
			return nil, err
		}
		upsampled, err := tensor.Resize(penult, append(factors, 1))
		if err != nil {
			return nil, err
		}
		masked[i] = maskInput(input, tensor.NormalizeChannels(upsampled))
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	preds, err := s.model.Predict(masked, batchSize)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(scores) {
		return nil, fmt.Errorf("%w: model returned %d outputs for %d scores", ErrInvalidShape, len(preds), len(scores))
	}

	// Per-channel weights: score each channel's prediction slice, then
	// sum the contributions of every output head.
	weights := make([]float32, batch*channels)
	for o, score := range scores {
		headWeights, err := reduceWeights(score, preds[o], batch, channels)
		if err != nil {
			return nil, err
		}
		for i, w := range headWeights {
			weights[i] += w
		}
	}

	m := weightedSum(penult, weights)
	modifier := opts.ActivationModifier
	if modifier == nil {
		modifier = ReLUModifier
	}
	m = modifier(m)

	if !opts.ExpandCAM {
		if opts.StandardizeCAM {
			m = tensor.Standardize(m)
		}
		return []*tensor.Tensor{m}, nil
	}

	out := make([]*tensor.Tensor, len(seedInputs))
	for i, input := range seedInputs {
		factors, err := tensor.ZoomFactors(m.Shape, input.Shape[:input.Rank()-1])
		if err != nil {
			return nil, err
		}
		resized, err := tensor.Resize(m, factors)
		if err != nil {
			return nil, err
		}
		if opts.StandardizeCAM {
			resized = tensor.Standardize(resized)
		}
		out[i] = resized
	}
	return out, nil
}

func (s *ScoreCAM) validate(scores []Score, seedInputs []*tensor.Tensor) error {
	if len(scores) != s.model.NumOutputs() {
		return fmt.Errorf("%w: got %d scores for a model with %d outputs", ErrInvalidArgument, len(scores), s.model.NumOutputs())
	}
	for i, score := range scores {
		if score == nil {
			return fmt.Errorf("%w: score %d is nil", ErrInvalidArgument, i)
		}
	}
	if len(seedInputs) != s.model.NumInputs() {
		return fmt.Errorf("%w: got %d seed inputs for a model with %d inputs", ErrInvalidArgument, len(seedInputs), s.model.NumInputs())
	}
	batch := -1
	for i, input := range seedInputs {
		if input == nil {
			return fmt.Errorf("%w: seed input %d is nil", ErrInvalidArgument, i)
		}
		if input.Rank() < 2 {
			return fmt.Errorf("%w: seed input %d must be (batch, ...), but was %v", ErrInvalidShape, i, input.Shape)
		}
		if batch == -1 {
			batch = input.Shape[0]
		} else if input.Shape[0] != batch {
			return fmt.Errorf("%w: seed input %d has batch size %d, expected %d", ErrInvalidShape, i, input.Shape[0], batch)
		}
	}
	return nil
}

// subsampleChannels keeps only the highest-variance channels when the
// channel count exceeds the resolved cap. Dropping low-variance
// channels is an approximation: they are assumed less discriminative,
// so the map degrades in degree, not in correctness.
func subsampleChannels(penult *tensor.Tensor, maxN int) (*tensor.Tensor, error) {
	channels := penult.Shape[penult.Rank()-1]
	switch {
	case maxN < 0:
		maxN = stepsAllowed(channels)
	case maxN == 0:
		return nil, fmt.Errorf("%w: max N cannot be 0, use -1 or a positive count", ErrInvalidArgument)
	default:
		maxN = stepsAllowed(maxN)
	}
	if maxN >= channels {
		return penult, nil
	}
	deviations := tensor.ChannelDeviation(penult)
	return tensor.GatherChannels(penult, topChannels(deviations, maxN)), nil
}

// topChannels returns the union over batch elements of the maxN
// channel indices with the largest deviation, deduplicated in
// first-seen order. Ties keep ascending channel order.
func topChannels(deviations *tensor.Tensor, maxN int) []int {
	batch := deviations.Shape[0]
	channels := deviations.Shape[1]
	order := make([]int, channels)
	seen := make(map[int]bool, maxN)
	var out []int
	for b := 0; b < batch; b++ {
		row := deviations.Data[b*channels : (b+1)*channels]
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return row[order[i]] > row[order[j]]
		})
		for _, c := range order[:maxN] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// maskInput multiplies one copy of the input per channel by that
// channel's normalized map, broadcast across the input's channel axis.
// The result is (batch*channels, spatial..., inChannels) with the copy
// index (channel) major, so row k*batch+b holds batch element b masked
// by channel k.
func maskInput(input, maps *tensor.Tensor) *tensor.Tensor {
	batch := input.Shape[0]
	inChannels := input.Shape[input.Rank()-1]
	inner := input.Size() / batch
	positions := inner / inChannels
	channels := maps.Shape[maps.Rank()-1]

	shape := append([]int{batch * channels}, input.Shape[1:]...)
	out := tensor.New(shape...)
	for k := 0; k < channels; k++ {
		for b := 0; b < batch; b++ {
			dst := (k*batch + b) * inner
			src := b * inner
			mapBase := b * positions * channels
			for p := 0; p < positions; p++ {
				m := maps.Data[mapBase+p*channels+k]
				for c := 0; c < inChannels; c++ {
					out.Data[dst+p*inChannels+c] = input.Data[src+p*inChannels+c] * m
				}
			}
		}
	}
	return out
}

// reduceWeights applies a score to each channel's slice of a model
// output and reduces the values to one weight per (batch element,
// channel). A score may return several values per batch element; the
// repeats are averaged.
func reduceWeights(score Score, pred *tensor.Tensor, batch, channels int) ([]float32, error) {
	rows := pred.Shape[0]
	if channels == 0 || rows%channels != 0 {
		return nil, fmt.Errorf("%w: prediction batch %d is not divisible by %d channels", ErrInvalidShape, rows, channels)
	}
	perChannel := rows / channels
	var vals []float32
	valsPerChannel := -1
	for k := 0; k < channels; k++ {
		sub := pred.SliceBatch(k*perChannel, (k+1)*perChannel)
		sv, err := score.Apply(sub)
		if err != nil {
			return nil, err
		}
		if valsPerChannel == -1 {
			valsPerChannel = len(sv)
		} else if len(sv) != valsPerChannel {
			return nil, fmt.Errorf("%w: score returned %d values for one channel and %d for another", ErrInvalidShape, valsPerChannel, len(sv))
		}
		vals = append(vals, sv...)
	}
	if valsPerChannel == 0 || valsPerChannel%batch != 0 {
		return nil, fmt.Errorf("%w: score returned %d values for batch size %d", ErrInvalidShape, valsPerChannel, batch)
	}
	repeats := valsPerChannel / batch
	weights := make([]float32, batch*channels)
	for k := 0; k < channels; k++ {
		for b := 0; b < batch; b++ {
			sum := float32(0)
			for j := 0; j < repeats; j++ {
				sum += vals[k*valsPerChannel+b*repeats+j]
			}
			weights[b*channels+k] = sum / float32(repeats)
		}
	}
	return weights, nil
}

// weightedSum combines the activation channels into one map per batch
// element: a (spatial, channels) matrix times the (channels,) weight
// vector, batched over the leading axis.
func weightedSum(penult *tensor.Tensor, weights []float32) *tensor.Tensor {
	batch := penult.Shape[0]
	channels := penult.Shape[penult.Rank()-1]
	positions := penult.Size() / (batch * channels)
	outShape := append([]int{batch}, penult.Shape[1:penult.Rank()-1]...)
	out := tensor.New(outShape...)

	a := make([]float64, positions*channels)
	w := make([]float64, channels)
	for b := 0; b < batch; b++ {
		block := penult.Data[b*positions*channels : (b+1)*positions*channels]
		for i, v := range block {
			a[i] = float64(v)
		}
		for c := 0; c < channels; c++ {
			w[c] = float64(weights[b*channels+c])
		}
		var combined mat.VecDense
		combined.MulVec(mat.NewDense(positions, channels, a), mat.NewVecDense(channels, w))
		for p := 0; p < positions; p++ {
			out.Data[b*positions+p] = float32(combined.AtVec(p))
		}
	}
	return out
}
