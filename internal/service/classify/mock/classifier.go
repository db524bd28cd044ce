// Package mock provides an in-process classifier for development and testing
// without a model server. Its output is deterministic per input tensor: the
// same audio always yields the same probability vector.
package mock

import (
	"context"
	"fmt"
	"math"

	"ai-emotion-inference-service/internal/service/feature"
)

// Classifier implements classify.Classifier with deterministic fake output.
type Classifier struct {
	numLabels int
}

// New creates a mock classifier over numLabels classes.
func New(numLabels int) *Classifier {
	return &Classifier{numLabels: numLabels}
}

// Name identifies the backend.
func (c *Classifier) Name() string { return "mock" }

// Predict derives a probability vector from tensor statistics. The winning
// class is a stable function of the input, the rest of the mass is spread
// evenly, so the vector always sums to 1.
func (c *Classifier) Predict(_ context.Context, t *feature.Tensor) ([]float64, error) {
	if c.numLabels <= 0 {
		return nil, fmt.Errorf("mock classifier has no labels")
	}
	if t == nil || len(t.Data) == 0 {
		return nil, fmt.Errorf("empty feature tensor")
	}

	var acc float64
	for i, v := range t.Data {
		acc += math.Abs(v) * float64(i%7+1)
	}

	winner := 0
	if !math.IsNaN(acc) && !math.IsInf(acc, 0) {
		winner = int(math.Mod(acc, float64(c.numLabels)))
		if winner < 0 {
			winner += c.numLabels
		}
	}

	const peak = 0.82
	probs := make([]float64, c.numLabels)
	if c.numLabels == 1 {
		probs[0] = 1.0
		return probs, nil
	}
	rest := (1.0 - peak) / float64(c.numLabels-1)
	for i := range probs {
		probs[i] = rest
	}
	probs[winner] = peak
	return probs, nil
}
