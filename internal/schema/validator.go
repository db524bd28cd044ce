// Package schema validates prediction events before they are published.
package schema

import (
	"fmt"

	"ai-emotion-inference-service/internal/models"
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks a prediction event against the published contract.
// Non-event payloads pass through unchecked.
func (v *Validator) Validate(event any) error {
	ev, ok := event.(models.PredictionEvent)
	if !ok {
		return nil
	}
	if ev.EventType == "" {
		return fmt.Errorf("event missing eventType")
	}
	if ev.SessionID == "" {
		return fmt.Errorf("event missing sessionId")
	}
	if ev.Emotion == "" {
		return fmt.Errorf("event missing emotion")
	}
	if ev.Confidence < 0 || ev.Confidence > 100 {
		return fmt.Errorf("event confidence %d out of range [0,100]", ev.Confidence)
	}
	return nil
}
