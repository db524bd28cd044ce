package classify

import (
	"context"
	"errors"
	"testing"

	"ai-emotion-inference-service/internal/models"
	"ai-emotion-inference-service/internal/service/feature"
)

// stubClassifier returns a fixed vector or error.
type stubClassifier struct {
	probs []float64
	err   error
}

func (s *stubClassifier) Predict(_ context.Context, _ *feature.Tensor) ([]float64, error) {
	return s.probs, s.err
}

func (s *stubClassifier) Name() string { return "stub" }

var testVocab = models.Vocabulary{"angry", "calm", "happy", "sad"}

func TestClassify_PicksArgmax(t *testing.T) {
	a := NewAdapter(&stubClassifier{probs: []float64{0.1, 0.05, 0.7, 0.15}}, testVocab)

	pred, err := a.Classify(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.Emotion != "happy" {
		t.Errorf("expected happy, got %q", pred.Emotion)
	}
	if pred.Confidence != 70 {
		t.Errorf("expected confidence 70, got %d", pred.Confidence)
	}
}

func TestClassify_TieBreaksToLowestIndex(t *testing.T) {
	tests := []struct {
		name  string
		probs []float64
		want  string
	}{
		{"two-way tie", []float64{0.1, 0.4, 0.4, 0.1}, "calm"},
		{"all equal", []float64{0.25, 0.25, 0.25, 0.25}, "angry"},
		{"tie at front", []float64{0.4, 0.4, 0.1, 0.1}, "angry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(&stubClassifier{probs: tt.probs}, testVocab)
			pred, err := a.Classify(context.Background(), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pred.Emotion != tt.want {
				t.Errorf("expected %q, got %q", tt.want, pred.Emotion)
			}
		})
	}
}

func TestClassify_ConfidenceRoundedAndClamped(t *testing.T) {
	tests := []struct {
		name  string
		probs []float64
		want  int
	}{
		{"rounds up", []float64{0.996, 0, 0, 0}, 100},
		{"rounds down", []float64{0.4449, 0, 0, 0}, 44},
		{"rounds half away from zero", []float64{0.125, 0, 0, 0}, 13},
		{"clamps above 100", []float64{1.2, 0, 0, 0}, 100},
		{"clamps below 0", []float64{-0.5, -0.9, -0.7, -0.8}, 0},
		{"exact zero", []float64{0, 0, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(&stubClassifier{probs: tt.probs}, testVocab)
			pred, err := a.Classify(context.Background(), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pred.Confidence != tt.want {
				t.Errorf("expected confidence %d, got %d", tt.want, pred.Confidence)
			}
		})
	}
}

func TestClassify_BackendError(t *testing.T) {
	backendErr := errors.New("model unavailable")
	a := NewAdapter(&stubClassifier{err: backendErr}, testVocab)

	_, err := a.Classify(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected *InferenceError, got %T", err)
	}
	if infErr.Provider != "stub" {
		t.Errorf("expected provider stub, got %q", infErr.Provider)
	}
	if !errors.Is(err, backendErr) {
		t.Error("expected wrapped backend error")
	}
}

func TestClassify_EmptyVector(t *testing.T) {
	a := NewAdapter(&stubClassifier{probs: []float64{}}, testVocab)

	_, err := a.Classify(context.Background(), nil)
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected *InferenceError for empty vector, got %v", err)
	}
}

func TestClassify_IndexOutsideVocabulary(t *testing.T) {
	// Backend emits more classes than the vocabulary names.
	a := NewAdapter(&stubClassifier{probs: []float64{0.1, 0.1, 0.1, 0.1, 0.6}}, testVocab)

	_, err := a.Classify(context.Background(), nil)
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected *InferenceError for out-of-range index, got %v", err)
	}
}
