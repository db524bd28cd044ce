package serving

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-emotion-inference-service/internal/service/feature"
)

func smallTensor() *feature.Tensor {
	t := &feature.Tensor{Bands: 2, Frames: 3, Channels: 1, Data: make([]float64, 6)}
	for i := range t.Data {
		t.Data[i] = float64(i) * 0.1
	}
	return t
}

func TestPredict_Success(t *testing.T) {
	var gotPath string
	var gotReq predictRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float64{{0.1, 0.7, 0.2}}})
	}))
	defer srv.Close()

	c := New(srv.URL, "emotion", 5*time.Second)
	probs, err := c.Predict(context.Background(), smallTensor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/models/emotion:predict" {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if len(gotReq.Instances) != 1 {
		t.Fatalf("expected batch of 1, got %d", len(gotReq.Instances))
	}
	inst := gotReq.Instances[0]
	if len(inst) != 2 || len(inst[0]) != 3 || len(inst[0][0]) != 1 {
		t.Errorf("expected instance shape (2, 3, 1)")
	}
	if inst[1][2][0] != 0.5 {
		t.Errorf("expected value 0.5 at band 1 frame 2, got %f", inst[1][2][0])
	}

	want := []float64{0.1, 0.7, 0.2}
	if len(probs) != len(want) {
		t.Fatalf("expected %d probabilities, got %d", len(want), len(probs))
	}
	for i := range want {
		if probs[i] != want[i] {
			t.Errorf("probs[%d] = %f, want %f", i, probs[i], want[i])
		}
	}
}

func TestPredict_ServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"http error status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			},
		},
		{
			"error field in body",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(predictResponse{Error: "input shape mismatch"})
			},
		},
		{
			"wrong batch size",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float64{{0.5}, {0.5}}})
			},
		},
		{
			"malformed body",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(srv.URL, "emotion", 5*time.Second)
			if _, err := c.Predict(context.Background(), smallTensor()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPredict_ServerUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", "emotion", 500*time.Millisecond)
	if _, err := c.Predict(context.Background(), smallTensor()); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestPredict_EmptyTensor(t *testing.T) {
	c := New("http://unused", "emotion", time.Second)
	if _, err := c.Predict(context.Background(), nil); err == nil {
		t.Error("expected error for nil tensor")
	}
	if _, err := c.Predict(context.Background(), &feature.Tensor{}); err == nil {
		t.Error("expected error for empty tensor")
	}
}
