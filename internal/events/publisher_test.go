package events

import (
	"context"
	"testing"

	"ai-emotion-inference-service/internal/models"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"nil brokers", &Config{Enabled: true, Brokers: nil}},
		{"nil config", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writer != nil {
				t.Error("expected nil writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:   false,
		Brokers:   []string{"localhost:9092"},
		Topic:     "test.prediction",
		Principal: "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topic != "test.prediction" {
		t.Errorf("expected topic 'test.prediction', got %s", p.topic)
	}
}

func TestPublisher_PublishPrediction_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := models.PredictionEvent{
		EventType:  "emotion.prediction.created",
		SessionID:  "sess-123",
		Source:     "stream",
		Emotion:    "happy",
		Confidence: 91,
	}

	if err := p.PublishPrediction(context.Background(), "sess-123", event); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishPrediction_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	// Channels cannot be marshaled.
	event := make(chan int)
	if err := p.PublishPrediction(context.Background(), "test-key", event); err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

func TestPublisher_Close_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilWriter(t *testing.T) {
	p := &Publisher{writer: nil}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing publisher with nil writer, got %v", err)
	}
}
