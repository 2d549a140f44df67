// Package models defines the data structures for session events.
package models

// Event types.
const (
	EventSessionStatus    = "meeting.session.status"
	EventSessionCompleted = "meeting.session.completed"
)

// Event is a publishable session event keyed by session.
type Event interface {
	Type() string
	Key() string
}

// SessionStatusEvent reports every status change of a session.
type SessionStatusEvent struct {
	EventType      string `json:"eventType"`
	SessionID      string `json:"sessionId"`
	Origin         string `json:"origin"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	ErrorKind      string `json:"errorKind,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	ChunksDone     int    `json:"chunksDone,omitempty"`
	ChunksTotal    int    `json:"chunksTotal,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

func (e SessionStatusEvent) Type() string { return e.EventType }
func (e SessionStatusEvent) Key() string  { return e.SessionID }

// SessionCompletedEvent carries the summary link of a completed session.
type SessionCompletedEvent struct {
	EventType       string `json:"eventType"`
	SessionID       string `json:"sessionId"`
	Origin          string `json:"origin"`
	ResultURL       string `json:"resultUrl"`
	Chunked         bool   `json:"chunked"`
	ChunkCount      int    `json:"chunkCount"`
	TranscriptChars int    `json:"transcriptChars"`
	DurationMs      int64  `json:"durationMs"`
	Timestamp       int64  `json:"timestamp"`
}

func (e SessionCompletedEvent) Type() string { return e.EventType }
func (e SessionCompletedEvent) Key() string  { return e.SessionID }
