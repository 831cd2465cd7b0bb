package cam

import (
	"errors"
	"math"
	"testing"

	"github.com/openfluke/gaze/tensor"
)

// TestInactiveScore verifies the score is zero regardless of output
func TestInactiveScore(t *testing.T) {
	score := NewInactiveScore()
	vals, err := score.Apply(tensor.FromSlice([]float32{3, -7, 42}, 3, 1))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(vals) != 3 {
		t.Fatalf("Expected 3 values, got %d", len(vals))
	}
	for i, v := range vals {
		if v != 0 {
			t.Errorf("vals[%d]: expected 0, got %f", i, v)
		}
	}
}

// TestBinaryScore verifies the value/complement behavior
func TestBinaryScore(t *testing.T) {
	positive, err := NewBinaryScore(true)
	if err != nil {
		t.Fatalf("NewBinaryScore failed: %v", err)
	}
	vals, err := positive.Apply(tensor.FromSlice([]float32{0.3}, 1))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if math.Abs(float64(vals[0]-0.3)) > 1e-6 {
		t.Errorf("Positive target: expected 0.3, got %f", vals[0])
	}

	negative, _ := NewBinaryScore(false)
	vals, err = negative.Apply(tensor.FromSlice([]float32{0.3}, 1))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if math.Abs(float64(vals[0]-0.7)) > 1e-6 {
		t.Errorf("Negative target: expected 0.7, got %f", vals[0])
	}
}

// TestBinaryScoreBroadcast verifies a single target covers the batch
func TestBinaryScoreBroadcast(t *testing.T) {
	score, _ := NewBinaryScore(false)
	vals, err := score.Apply(tensor.FromSlice([]float32{0.2, 0.9}, 2, 1))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	expected := []float32{0.8, 0.1}
	for i, v := range expected {
		if math.Abs(float64(vals[i]-v)) > 1e-6 {
			t.Errorf("vals[%d]: expected %f, got %f", i, v, vals[i])
		}
	}
}

// TestBinaryScoreErrors verifies constructor and shape validation
func TestBinaryScoreErrors(t *testing.T) {
	if _, err := NewBinaryScore(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected invalid-argument error for empty targets, got %v", err)
	}

	score, _ := NewBinaryScore(true)
	if _, err := score.Apply(tensor.FromSlice([]float32{1, 2, 3, 4}, 2, 2)); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Expected invalid-shape error for (2, 2) output, got %v", err)
	}
	if _, err := score.Apply(tensor.FromSlice(make([]float32, 8), 2, 2, 2)); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Expected invalid-shape error for rank-3 output, got %v", err)
	}
}

// TestCategoricalScoreRank2 verifies index selection is the identity on
// rank-2 outputs
func TestCategoricalScoreRank2(t *testing.T) {
	score, err := NewCategoricalScore(1)
	if err != nil {
		t.Fatalf("NewCategoricalScore failed: %v", err)
	}
	vals, err := score.Apply(tensor.FromSlice([]float32{0.1, 0.7, 0.2}, 1, 3))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if math.Abs(float64(vals[0]-0.7)) > 1e-6 {
		t.Errorf("Expected 0.7, got %f", vals[0])
	}
}

// TestCategoricalScoreMeanOverInterior verifies the selected channel is
// averaged over interior axes
func TestCategoricalScoreMeanOverInterior(t *testing.T) {
	score, _ := NewCategoricalScore(0)
	// Shape (1, 2, 2): channel 0 holds {1, 3}.
	output := tensor.FromSlice([]float32{1, 9, 3, 9}, 1, 2, 2)
	vals, err := score.Apply(output)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if math.Abs(float64(vals[0]-2)) > 1e-6 {
		t.Errorf("Expected mean 2, got %f", vals[0])
	}
}

// TestCategoricalScorePerBatchIndices verifies one index per batch element
func TestCategoricalScorePerBatchIndices(t *testing.T) {
	score, _ := NewCategoricalScore(0, 2)
	output := tensor.FromSlice([]float32{
		0.5, 0.1, 0.4,
		0.2, 0.2, 0.6,
	}, 2, 3)
	vals, err := score.Apply(output)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if math.Abs(float64(vals[0]-0.5)) > 1e-6 || math.Abs(float64(vals[1]-0.6)) > 1e-6 {
		t.Errorf("Expected [0.5 0.6], got %v", vals)
	}
}

// TestCategoricalScoreErrors verifies constructor and call-time validation
func TestCategoricalScoreErrors(t *testing.T) {
	if _, err := NewCategoricalScore(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected invalid-argument error for empty indices, got %v", err)
	}
	if _, err := NewCategoricalScore(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected invalid-argument error for negative index, got %v", err)
	}

	score, _ := NewCategoricalScore(5)
	if _, err := score.Apply(tensor.FromSlice([]float32{1, 2, 3}, 1, 3)); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Expected invalid-index error, got %v", err)
	}

	rank1, _ := NewCategoricalScore(0)
	if _, err := rank1.Apply(tensor.FromSlice([]float32{1, 2}, 2)); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Expected invalid-shape error for rank-1 output, got %v", err)
	}
}

// TestScoreFunc verifies plain functions satisfy the Score interface
func TestScoreFunc(t *testing.T) {
	var score Score = ScoreFunc(func(output *tensor.Tensor) ([]float32, error) {
		return []float32{output.Data[0]}, nil
	})
	vals, err := score.Apply(tensor.FromSlice([]float32{1.5}, 1, 1))
	if err != nil || vals[0] != 1.5 {
		t.Errorf("Expected 1.5, got %v (%v)", vals, err)
	}
}
