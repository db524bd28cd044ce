// Package classify wraps the opaque emotion classifier and converts its raw
// probability vector into a label and confidence pair.
package classify

import (
	"context"
	"fmt"
	"math"

	"ai-emotion-inference-service/internal/models"
	"ai-emotion-inference-service/internal/service/feature"
)

// Classifier is the opaque model backend. Predict returns a probability
// vector over the closed label set; backends add their own batch axis where
// the underlying model requires one.
type Classifier interface {
	// Predict runs inference on a single feature tensor.
	Predict(ctx context.Context, t *feature.Tensor) ([]float64, error)

	// Name identifies the backend for logs and metrics.
	Name() string
}

// InferenceError reports a classifier failure or an incompatible result.
// It is surfaced to the caller, never retried, and not fatal to a connection.
type InferenceError struct {
	Provider string
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference (%s): %v", e.Provider, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Adapter turns raw classifier probabilities into a Prediction using a fixed
// decision rule: argmax with first-occurrence tie-break, confidence rounded
// to an integer percentage and clamped into [0, 100].
type Adapter struct {
	classifier Classifier
	vocab      models.Vocabulary
}

// NewAdapter creates an Adapter over the given backend and label vocabulary.
// Both are built once at startup and shared read-only across sessions.
func NewAdapter(c Classifier, vocab models.Vocabulary) *Adapter {
	return &Adapter{classifier: c, vocab: vocab}
}

// Classify runs the backend on t and decodes its output.
func (a *Adapter) Classify(ctx context.Context, t *feature.Tensor) (models.Prediction, error) {
	probs, err := a.classifier.Predict(ctx, t)
	if err != nil {
		return models.Prediction{}, &InferenceError{Provider: a.classifier.Name(), Err: err}
	}
	if len(probs) == 0 {
		return models.Prediction{}, &InferenceError{Provider: a.classifier.Name(), Err: fmt.Errorf("empty probability vector")}
	}

	idx := argmax(probs)
	label, ok := a.vocab.Label(idx)
	if !ok {
		return models.Prediction{}, &InferenceError{
			Provider: a.classifier.Name(),
			Err:      fmt.Errorf("predicted index %d outside vocabulary of %d labels", idx, len(a.vocab)),
		}
	}

	confidence := int(math.Round(probs[idx] * 100))
	if confidence < 0 {
		confidence = 0
	} else if confidence > 100 {
		confidence = 100
	}

	return models.Prediction{Emotion: label, Confidence: confidence}, nil
}

// argmax returns the index of the maximum value; ties resolve to the lowest
// index.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
