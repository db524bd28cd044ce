// Package session orchestrates the decode → extract → infer pipeline for one
// client interaction, one unit of audio at a time.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a unit being processed.
type State int

const (
	// StateIdle - waiting for the next unit of audio.
	StateIdle State = iota
	// StateDecoding - parsing the byte blob into PCM.
	StateDecoding
	// StateExtracting - transforming PCM into the feature tensor.
	StateExtracting
	// StateInferring - waiting on the classifier.
	StateInferring
	// StateDone - unit completed with a prediction.
	StateDone
	// StateFailed - unit failed in one of the processing states.
	// Absorbing for the unit; the session itself may process further units.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDecoding:
		return "DECODING"
	case StateExtracting:
		return "EXTRACTING"
	case StateInferring:
		return "INFERRING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal for the current unit.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Errors for invalid state transitions.
var (
	ErrUnitTerminal      = errors.New("unit already in a terminal state")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// Lifecycle manages the state machine for a session's current unit.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → DECODING → EXTRACTING → INFERRING → DONE
//	           │           │            │
//	           └───────────┴────────────┴──→ FAILED
//
// Terminal states reset back to IDLE before the next unit is accepted.
type Lifecycle struct {
	mu        sync.RWMutex
	sessionID string
	state     State
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle(sessionID string) *Lifecycle {
	return &Lifecycle{sessionID: sessionID, state: StateIdle}
}

// SessionID returns the owning session's ID.
func (l *Lifecycle) SessionID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionID
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// BeginDecode transitions IDLE → DECODING.
func (l *Lifecycle) BeginDecode() error {
	return l.transition(StateIdle, StateDecoding)
}

// BeginExtract transitions DECODING → EXTRACTING.
func (l *Lifecycle) BeginExtract() error {
	return l.transition(StateDecoding, StateExtracting)
}

// BeginInfer transitions EXTRACTING → INFERRING.
func (l *Lifecycle) BeginInfer() error {
	return l.transition(StateExtracting, StateInferring)
}

// Complete transitions INFERRING → DONE.
func (l *Lifecycle) Complete() error {
	return l.transition(StateInferring, StateDone)
}

// Fail transitions any processing state to FAILED.
// Returns false if the unit is already terminal or still idle.
func (l *Lifecycle) Fail() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateDecoding, StateExtracting, StateInferring:
		l.state = StateFailed
		return true
	default:
		return false
	}
}

// Reset returns a terminal (or idle) lifecycle to IDLE for the next unit.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateIdle
}

func (l *Lifecycle) transition(from, to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrUnitTerminal, l.state)
	}
	if l.state != from {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, l.state, to)
	}
	l.state = to
	return nil
}
