package session

import (
	"errors"
	"testing"
)

func TestLifecycle_HappyPath(t *testing.T) {
	l := NewLifecycle("session-1")

	if l.State() != StateIdle {
		t.Fatalf("expected IDLE, got %s", l.State())
	}
	if l.SessionID() != "session-1" {
		t.Errorf("unexpected session ID %q", l.SessionID())
	}

	steps := []struct {
		name string
		fn   func() error
		want State
	}{
		{"BeginDecode", l.BeginDecode, StateDecoding},
		{"BeginExtract", l.BeginExtract, StateExtracting},
		{"BeginInfer", l.BeginInfer, StateInferring},
		{"Complete", l.Complete, StateDone},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if l.State() != s.want {
			t.Fatalf("%s: expected %s, got %s", s.name, s.want, l.State())
		}
	}

	if !l.State().IsTerminal() {
		t.Error("DONE must be terminal")
	}
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(l *Lifecycle)
		fn    func(l *Lifecycle) error
	}{
		{"extract from idle", func(l *Lifecycle) {}, (*Lifecycle).BeginExtract},
		{"infer from idle", func(l *Lifecycle) {}, (*Lifecycle).BeginInfer},
		{"complete from idle", func(l *Lifecycle) {}, (*Lifecycle).Complete},
		{"decode twice", func(l *Lifecycle) { l.BeginDecode() }, (*Lifecycle).BeginDecode},
		{"skip extract", func(l *Lifecycle) { l.BeginDecode() }, (*Lifecycle).BeginInfer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle("s")
			tt.setup(l)
			err := tt.fn(l)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestLifecycle_TerminalIsAbsorbing(t *testing.T) {
	l := NewLifecycle("s")
	l.BeginDecode()
	if !l.Fail() {
		t.Fatal("expected Fail to succeed from DECODING")
	}
	if l.State() != StateFailed {
		t.Fatalf("expected FAILED, got %s", l.State())
	}

	if err := l.BeginDecode(); !errors.Is(err, ErrUnitTerminal) {
		t.Errorf("expected ErrUnitTerminal from FAILED, got %v", err)
	}
	if l.Fail() {
		t.Error("Fail from FAILED must report false")
	}

	done := NewLifecycle("s2")
	done.BeginDecode()
	done.BeginExtract()
	done.BeginInfer()
	done.Complete()
	if err := done.BeginDecode(); !errors.Is(err, ErrUnitTerminal) {
		t.Errorf("expected ErrUnitTerminal from DONE, got %v", err)
	}
	if done.Fail() {
		t.Error("Fail from DONE must report false")
	}
}

func TestLifecycle_FailFromProcessingStates(t *testing.T) {
	setups := map[string]func(l *Lifecycle){
		"decoding":   func(l *Lifecycle) { l.BeginDecode() },
		"extracting": func(l *Lifecycle) { l.BeginDecode(); l.BeginExtract() },
		"inferring":  func(l *Lifecycle) { l.BeginDecode(); l.BeginExtract(); l.BeginInfer() },
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			l := NewLifecycle("s")
			setup(l)
			if !l.Fail() {
				t.Error("expected Fail to succeed")
			}
		})
	}

	idle := NewLifecycle("s")
	if idle.Fail() {
		t.Error("Fail from IDLE must report false")
	}
}

func TestLifecycle_ResetAllowsNextUnit(t *testing.T) {
	l := NewLifecycle("s")
	l.BeginDecode()
	l.Fail()

	l.Reset()
	if l.State() != StateIdle {
		t.Fatalf("expected IDLE after reset, got %s", l.State())
	}
	if err := l.BeginDecode(); err != nil {
		t.Errorf("expected clean decode after reset, got %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:       "IDLE",
		StateDecoding:   "DECODING",
		StateExtracting: "EXTRACTING",
		StateInferring:  "INFERRING",
		StateDone:       "DONE",
		StateFailed:     "FAILED",
		State(42):       "UNKNOWN(42)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
