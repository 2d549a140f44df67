// Package schema validates session events before they are published.
package schema

import (
	"errors"
	"fmt"
	"net/url"

	"meeting-summary-service/internal/models"
)

// ErrInvalidEvent is wrapped by every validation failure.
var ErrInvalidEvent = errors.New("invalid event")

var knownStatuses = map[string]bool{
	"IDLE":               true,
	"RECORDING":          true,
	"PREPARING_PLAYBACK": true,
	"EVALUATING_SIZE":    true,
	"TRANSCRIBING":       true,
	"RELAYING":           true,
	"COMPLETE":           true,
	"FAILED":             true,
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks the required fields of a session event.
func (v *Validator) Validate(event models.Event) error {
	switch ev := event.(type) {
	case models.SessionStatusEvent:
		return validateStatus(ev)
	case *models.SessionStatusEvent:
		return validateStatus(*ev)
	case models.SessionCompletedEvent:
		return validateCompleted(ev)
	case *models.SessionCompletedEvent:
		return validateCompleted(*ev)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidEvent, event)
	}
}

func validateStatus(ev models.SessionStatusEvent) error {
	if ev.EventType != models.EventSessionStatus {
		return fmt.Errorf("%w: eventType %q", ErrInvalidEvent, ev.EventType)
	}
	if ev.SessionID == "" {
		return fmt.Errorf("%w: sessionId is required", ErrInvalidEvent)
	}
	if !knownStatuses[ev.Status] {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, ev.Status)
	}
	if ev.Status == "FAILED" && ev.ErrorMessage == "" {
		return fmt.Errorf("%w: FAILED status requires errorMessage", ErrInvalidEvent)
	}
	if ev.ChunksDone < 0 || ev.ChunksTotal < 0 || ev.ChunksDone > ev.ChunksTotal {
		return fmt.Errorf("%w: chunk progress %d/%d", ErrInvalidEvent, ev.ChunksDone, ev.ChunksTotal)
	}
	if ev.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	}
	return nil
}

func validateCompleted(ev models.SessionCompletedEvent) error {
	if ev.EventType != models.EventSessionCompleted {
		return fmt.Errorf("%w: eventType %q", ErrInvalidEvent, ev.EventType)
	}
	if ev.SessionID == "" {
		return fmt.Errorf("%w: sessionId is required", ErrInvalidEvent)
	}
	u, err := url.Parse(ev.ResultURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: resultUrl %q is not absolute", ErrInvalidEvent, ev.ResultURL)
	}
	if ev.ChunkCount < 1 {
		return fmt.Errorf("%w: chunkCount must be at least 1", ErrInvalidEvent)
	}
	if ev.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	}
	return nil
}
