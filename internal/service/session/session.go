package session

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Origin tells how the session's audio was obtained.
type Origin string

const (
	OriginRecording Origin = "recording"
	OriginIngest    Origin = "ingest"
)

// Session is the unit of work from capture (or ingestion) to summary link.
type Session struct {
	ID          string
	Origin      Origin
	SourceAudio string
	CreatedAt   time.Time
	*Lifecycle
}

// New creates a session in IDLE status with a fresh ID.
func New(origin Origin, sourceAudio string) *Session {
	id := uuid.NewString()
	return &Session{
		ID:          id,
		Origin:      origin,
		SourceAudio: sourceAudio,
		CreatedAt:   time.Now(),
		Lifecycle:   NewLifecycle(id),
	}
}

// RecordingPath returns the temp target for a new recording session.
func RecordingPath(tempDir, sessionID string) string {
	return filepath.Join(tempDir, fmt.Sprintf("meeting-%s.m4a", sessionID))
}
