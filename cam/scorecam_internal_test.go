package cam

import (
	"errors"
	"math"
	"testing"

	"github.com/openfluke/gaze/tensor"
)

// TestStepsAllowed verifies the environment cap
func TestStepsAllowed(t *testing.T) {
	if got := stepsAllowed(16); got != 16 {
		t.Errorf("Unset env: expected 16, got %d", got)
	}

	t.Setenv(MaxStepsEnv, "4")
	if got := stepsAllowed(16); got != 4 {
		t.Errorf("Capped: expected 4, got %d", got)
	}
	if got := stepsAllowed(2); got != 2 {
		t.Errorf("Below cap: expected 2, got %d", got)
	}

	t.Setenv(MaxStepsEnv, "junk")
	if got := stepsAllowed(16); got != 16 {
		t.Errorf("Invalid env: expected 16, got %d", got)
	}
}

// TestTopChannels verifies descending-deviation selection with
// deduplication across batch elements
func TestTopChannels(t *testing.T) {
	devs := tensor.FromSlice([]float32{
		0.1, 0.9, 0.5,
		0.8, 0.2, 0.7,
	}, 2, 3)
	got := topChannels(devs, 2)
	// Batch 0 picks [1 2], batch 1 picks [0 2]; union keeps first-seen order.
	expected := []int{1, 2, 0}
	if len(got) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
	for i, v := range expected {
		if got[i] != v {
			t.Errorf("Index %d: expected %d, got %d", i, v, got[i])
		}
	}
}

// TestTopChannelsTies verifies ties keep ascending channel order
func TestTopChannelsTies(t *testing.T) {
	devs := tensor.FromSlice([]float32{0.5, 0.5, 0.5}, 1, 3)
	got := topChannels(devs, 2)
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Expected [0 1], got %v", got)
	}
}

// TestSubsampleChannels verifies the max-N contract
func TestSubsampleChannels(t *testing.T) {
	penult := tensor.FromSlice([]float32{
		1, 5, 0,
		2, 5, 0,
		3, 5, 0,
		4, 5, 0,
	}, 1, 4, 3)

	if _, err := subsampleChannels(penult, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected invalid-argument error for max N 0, got %v", err)
	}

	all, err := subsampleChannels(penult, -1)
	if err != nil {
		t.Fatalf("subsampleChannels failed: %v", err)
	}
	if all.Shape[2] != 3 {
		t.Errorf("Negative max N should keep all channels, got %v", all.Shape)
	}

	one, err := subsampleChannels(penult, 1)
	if err != nil {
		t.Fatalf("subsampleChannels failed: %v", err)
	}
	if one.Shape[2] != 1 {
		t.Fatalf("Expected 1 channel, got %v", one.Shape)
	}
	// Channel 0 varies most; constants lose.
	for i, v := range []float32{1, 2, 3, 4} {
		if one.Data[i] != v {
			t.Errorf("Data[%d]: expected %f, got %f", i, v, one.Data[i])
		}
	}
}

// TestMaskInput verifies the channel-major masked batch layout
func TestMaskInput(t *testing.T) {
	// Input (2, 1, 1, 2): batch elements [1 2] and [3 4].
	input := tensor.FromSlice([]float32{1, 2, 3, 4}, 2, 1, 1, 2)
	// Maps (2, 1, 1, 2): per batch element, channel masks.
	maps := tensor.FromSlice([]float32{0.5, 1, 0, 0.25}, 2, 1, 1, 2)

	out := maskInput(input, maps)
	if out.Shape[0] != 4 || out.Shape[3] != 2 {
		t.Fatalf("Expected shape [4 1 1 2], got %v", out.Shape)
	}
	// Row k*batch+b = input[b] * maps[b, ..., k].
	expected := []float32{
		0.5, 1, // k=0 b=0: [1 2] * 0.5
		0, 0, // k=0 b=1: [3 4] * 0
		1, 2, // k=1 b=0: [1 2] * 1
		0.75, 1, // k=1 b=1: [3 4] * 0.25
	}
	for i, v := range expected {
		if math.Abs(float64(out.Data[i]-v)) > 1e-6 {
			t.Errorf("Data[%d]: expected %f, got %f", i, v, out.Data[i])
		}
	}
}

// TestReduceWeights verifies per-channel score reduction
func TestReduceWeights(t *testing.T) {
	score, _ := NewCategoricalScore(0)
	// Predictions for batch 2, channels 2: rows are channel-major.
	pred := tensor.FromSlice([]float32{
		0.1, 0,
		0.2, 0,
		0.3, 0,
		0.4, 0,
	}, 4, 2)
	weights, err := reduceWeights(score, pred, 2, 2)
	if err != nil {
		t.Fatalf("reduceWeights failed: %v", err)
	}
	// weights[b*channels+k]
	expected := []float32{0.1, 0.3, 0.2, 0.4}
	for i, v := range expected {
		if math.Abs(float64(weights[i]-v)) > 1e-6 {
			t.Errorf("weights[%d]: expected %f, got %f", i, v, weights[i])
		}
	}
}

// TestReduceWeightsRaggedScore verifies a score returning a count not
// divisible by the batch size is rejected
func TestReduceWeightsRaggedScore(t *testing.T) {
	bad := ScoreFunc(func(output *tensor.Tensor) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	})
	pred := tensor.FromSlice(make([]float32, 8), 4, 2)
	if _, err := reduceWeights(bad, pred, 2, 2); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Expected invalid-shape error, got %v", err)
	}
}

// TestReduceWeightsRepeats verifies repeated values per batch element
// are averaged
func TestReduceWeightsRepeats(t *testing.T) {
	repeat := ScoreFunc(func(output *tensor.Tensor) ([]float32, error) {
		v := output.Data[0]
		return []float32{v, v + 2}, nil
	})
	pred := tensor.FromSlice([]float32{1, 0, 5, 0}, 2, 2)
	weights, err := reduceWeights(repeat, pred, 1, 2)
	if err != nil {
		t.Fatalf("reduceWeights failed: %v", err)
	}
	// Channel 0: mean(1, 3) = 2; channel 1: mean(5, 7) = 6.
	if math.Abs(float64(weights[0]-2)) > 1e-6 || math.Abs(float64(weights[1]-6)) > 1e-6 {
		t.Errorf("Expected [2 6], got %v", weights)
	}
}

// TestWeightedSum verifies the batched dot product over channels
func TestWeightedSum(t *testing.T) {
	// (1, 2, 2) activations: positions hold channel pairs.
	penult := tensor.FromSlice([]float32{
		1, 10,
		2, 20,
	}, 1, 2, 2)
	out := weightedSum(penult, []float32{1, 0.1})
	if out.Rank() != 2 || out.Shape[1] != 2 {
		t.Fatalf("Expected shape [1 2], got %v", out.Shape)
	}
	expected := []float32{2, 4}
	for i, v := range expected {
		if math.Abs(float64(out.Data[i]-v)) > 1e-5 {
			t.Errorf("Data[%d]: expected %f, got %f", i, v, out.Data[i])
		}
	}
}

// TestLayerRefResolve verifies reference resolution edge cases
func TestLayerRefResolve(t *testing.T) {
	byName := func(name string) (int, bool) {
		if name == "conv" {
			return 2, true
		}
		return 0, false
	}

	if idx, err := (LayerRef{}).Resolve(5, byName); err != nil || idx != 4 {
		t.Errorf("Zero ref: expected 4, got %d (%v)", idx, err)
	}
	if idx, err := ByIndex(-2).Resolve(5, byName); err != nil || idx != 3 {
		t.Errorf("ByIndex(-2): expected 3, got %d (%v)", idx, err)
	}
	if idx, err := ByName("conv").Resolve(5, byName); err != nil || idx != 2 {
		t.Errorf("ByName: expected 2, got %d (%v)", idx, err)
	}
	if _, err := ByIndex(5).Resolve(5, byName); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Out of range: expected invalid-argument error, got %v", err)
	}
	if _, err := ByName("missing").Resolve(5, byName); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Unknown name: expected invalid-argument error, got %v", err)
	}
	if _, err := ByIndex(0).Resolve(0, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Empty model: expected invalid-argument error, got %v", err)
	}
}
