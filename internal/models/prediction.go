// Package models defines the data structures for prediction results and events.
package models

// Prediction is the outcome of classifying one unit of audio.
// Confidence is the winning class probability expressed as an integer percentage.
type Prediction struct {
	Emotion    string `json:"emotion"`
	Confidence int    `json:"confidence"`
}

// ErrorReply is the structured error payload sent to clients in place of a
// prediction when a pipeline stage fails.
type ErrorReply struct {
	Error string `json:"error"`
}

// PredictionEvent is the event published for every successful prediction.
type PredictionEvent struct {
	EventType  string `json:"eventType"`
	SessionID  string `json:"sessionId"`
	Source     string `json:"source"` // "upload" or "stream"
	Emotion    string `json:"emotion"`
	Confidence int    `json:"confidence"`
	Timestamp  int64  `json:"timestamp"`
}

// Vocabulary is the closed, ordered label set the classifier predicts over.
// It is built once at startup and shared read-only across sessions.
type Vocabulary []string

// Label returns the label at index i, or false if i is out of range.
func (v Vocabulary) Label(i int) (string, bool) {
	if i < 0 || i >= len(v) {
		return "", false
	}
	return v[i], true
}
