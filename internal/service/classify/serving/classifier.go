// Package serving provides a classifier backed by a TensorFlow-Serving-style
// REST endpoint.
package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-emotion-inference-service/internal/service/feature"
)

// Classifier calls POST <endpoint>/v1/models/<model>:predict with one
// batched instance per request.
type Classifier struct {
	endpoint string
	model    string
	client   *http.Client
}

// New creates a serving classifier. endpoint is the server base URL, e.g.
// "http://serving:8501".
func New(endpoint, model string, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend.
func (c *Classifier) Name() string { return "serving" }

type predictRequest struct {
	Instances [][][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

// Predict sends the tensor, wrapped in a size-1 batch, to the model server
// and returns the probability vector for the single instance.
func (c *Classifier) Predict(ctx context.Context, t *feature.Tensor) ([]float64, error) {
	if t == nil || len(t.Data) == 0 {
		return nil, fmt.Errorf("empty feature tensor")
	}

	body, err := json.Marshal(predictRequest{Instances: [][][][]float64{instance(t)}})
	if err != nil {
		return nil, fmt.Errorf("encoding predict request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:predict", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading model server response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding model server response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("model server error: %s", out.Error)
	}
	if len(out.Predictions) != 1 {
		return nil, fmt.Errorf("expected 1 prediction, got %d", len(out.Predictions))
	}
	return out.Predictions[0], nil
}

// instance lays the flat tensor out as the nested (bands, frames, 1) array
// the serving JSON API expects.
func instance(t *feature.Tensor) [][][]float64 {
	inst := make([][][]float64, t.Bands)
	for b := 0; b < t.Bands; b++ {
		rows := make([][]float64, t.Frames)
		for f := 0; f < t.Frames; f++ {
			rows[f] = []float64{t.At(b, f)}
		}
		inst[b] = rows
	}
	return inst
}
