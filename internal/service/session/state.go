// Package session provides session identity and lifecycle management.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// Status represents the pipeline status of a session.
type Status int

const (
	// StatusIdle - No session work in progress.
	StatusIdle Status = iota
	// StatusRecording - Capture is running.
	StatusRecording
	// StatusPreparingPlayback - Recording finalized, loading it for playback.
	StatusPreparingPlayback
	// StatusEvaluatingSize - Deciding between single-shot and chunked transcription.
	StatusEvaluatingSize
	// StatusTranscribing - Speech-to-text in progress.
	StatusTranscribing
	// StatusRelaying - Transcript handed to the summary relay.
	StatusRelaying
	// StatusComplete - Result link available. Terminal.
	StatusComplete
	// StatusFailed - Aborted with an error. Terminal.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusRecording:
		return "RECORDING"
	case StatusPreparingPlayback:
		return "PREPARING_PLAYBACK"
	case StatusEvaluatingSize:
		return "EVALUATING_SIZE"
	case StatusTranscribing:
		return "TRANSCRIBING"
	case StatusRelaying:
		return "RELAYING"
	case StatusComplete:
		return "COMPLETE"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for st := StatusIdle; st <= StatusFailed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session status %q", text)
}

// IsTerminal returns true if the status is terminal (COMPLETE or FAILED).
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// IsUploading returns true while remote work (transcription or relay) is pending.
func (s Status) IsUploading() bool {
	switch s {
	case StatusEvaluatingSize, StatusTranscribing, StatusRelaying:
		return true
	}
	return false
}

// Errors for invalid state transitions.
var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrSessionTerminal   = errors.New("session is terminal")
)

// transitions lists the allowed successors of each status. FAILED is
// reachable from every non-terminal, non-idle status.
var transitions = map[Status][]Status{
	StatusIdle:              {StatusRecording, StatusEvaluatingSize},
	StatusRecording:         {StatusPreparingPlayback, StatusFailed},
	StatusPreparingPlayback: {StatusEvaluatingSize, StatusFailed},
	StatusEvaluatingSize:    {StatusTranscribing, StatusFailed},
	StatusTranscribing:      {StatusRelaying, StatusFailed},
	StatusRelaying:          {StatusComplete, StatusFailed},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lifecycle manages the state machine for a single session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → RECORDING → PREPARING_PLAYBACK → EVALUATING_SIZE → TRANSCRIBING → RELAYING → COMPLETE
//	IDLE → EVALUATING_SIZE (ingest)
//	any non-terminal → FAILED
type Lifecycle struct {
	mu        sync.RWMutex
	sessionID string
	status    Status
}

// NewLifecycle creates a new session lifecycle in IDLE status.
func NewLifecycle(sessionID string) *Lifecycle {
	return &Lifecycle{
		sessionID: sessionID,
		status:    StatusIdle,
	}
}

// SessionID returns the session ID.
func (l *Lifecycle) SessionID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionID
}

// Status returns the current status.
func (l *Lifecycle) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// IsTerminal returns true if the session reached COMPLETE or FAILED.
func (l *Lifecycle) IsTerminal() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status.IsTerminal()
}

// Transition moves the session to the next status.
// Returns ErrSessionTerminal from a terminal status and ErrInvalidTransition
// when the move would skip a predecessor.
func (l *Lifecycle) Transition(to Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrSessionTerminal, l.status, to)
	}
	if !CanTransition(l.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.status, to)
	}
	l.status = to
	return nil
}

// Fail moves the session to FAILED.
// Returns true if the session was failed, false if already terminal or idle.
func (l *Lifecycle) Fail() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status.IsTerminal() || l.status == StatusIdle {
		return false
	}
	l.status = StatusFailed
	return true
}
