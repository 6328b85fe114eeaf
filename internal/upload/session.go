// Package upload implements the transport engine: staged files go to the
// server (or a simulated transport) with live progress, cancellation, and
// exactly one terminal outcome per session.
package upload

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State is an upload session state.
type State string

const (
	StateIdle                State = "idle"
	StateStaging             State = "staging"
	StatePendingConfirmation State = "pending_confirmation"
	StateInFlight            State = "in_flight"
	StateSucceeded           State = "succeeded"
	StateFailed              State = "failed"
	StateAborted             State = "aborted"
)

// validTransitions defines the session state machine. The page-level flags
// this replaces (uploading, files, progress, error) can no longer drift out
// of sync with each other.
var validTransitions = map[State][]State{
	StateIdle:                {StateStaging},
	StateStaging:             {StateStaging, StatePendingConfirmation, StateInFlight, StateIdle},
	StatePendingConfirmation: {StateStaging, StateInFlight, StateIdle},
	StateInFlight:            {StateSucceeded, StateFailed, StateAborted},
	StateSucceeded:           {StateIdle, StateStaging},
	StateFailed:              {StateIdle, StateStaging},
	StateAborted:             {StateIdle, StateStaging},
}

// Session is one upload session's state machine plus its progress counters.
// Progress is mutated only by the engine during an active transfer; overall
// percent is monotonically non-decreasing within a single attempt and resets
// to zero on a new session or cancellation.
type Session struct {
	id string

	mu      sync.Mutex
	state   State
	overall int
	perFile map[string]int
}

// NewSession creates an idle session with zeroed progress.
func NewSession() *Session {
	return &Session{
		id:      uuid.NewString(),
		state:   StateIdle,
		perFile: make(map[string]int),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to the given state, rejecting transitions the
// state machine does not define.
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range validTransitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid session transition %s -> %s", s.state, to)
}

// Terminal reports whether the session reached a terminal outcome.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateSucceeded || s.state == StateFailed || s.state == StateAborted
}

// setProgress records an overall percentage, clamped to [0,100] and never
// decreasing, mirrored to every tracked file id. Returns the applied value.
func (s *Session) setProgress(percent int, fileIDs []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent < s.overall {
		percent = s.overall
	}
	s.overall = percent
	for _, id := range fileIDs {
		s.perFile[id] = percent
	}
	return percent
}

// resetProgress zeroes all counters. Only cancellation and session start use
// it; it is the one sanctioned decrease.
func (s *Session) resetProgress(fileIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overall = 0
	for _, id := range fileIDs {
		s.perFile[id] = 0
	}
}

// Progress returns the overall percentage and a copy of per-file values.
func (s *Session) Progress() (int, map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perFile := make(map[string]int, len(s.perFile))
	for id, pct := range s.perFile {
		perFile[id] = pct
	}
	return s.overall, perFile
}
