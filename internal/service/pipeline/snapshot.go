package pipeline

import (
	"time"

	"meeting-summary-service/internal/service/session"
)

// Snapshot is the externally observable state of the controller. It is
// published as a whole after every mutation.
type Snapshot struct {
	SessionID    string         `json:"sessionId,omitempty"`
	Origin       string         `json:"origin,omitempty"`
	Status       session.Status `json:"status"`
	Recording    bool           `json:"recording"`
	Level        float64        `json:"level"`
	Uploading    bool           `json:"uploading"`
	ResultURL    string         `json:"resultUrl,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	ErrorKind    string         `json:"errorKind,omitempty"`
	HasRecording bool           `json:"hasRecording"`
	Playing      bool           `json:"playing"`
	Duration     float64        `json:"duration"`
	Position     float64        `json:"position"`
	ChunksDone   int            `json:"chunksDone"`
	ChunksTotal  int            `json:"chunksTotal"`
	SourcePath   string         `json:"sourcePath,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Subscribe returns a channel that receives the current snapshot immediately
// and then every newer one. Slow readers only see the latest value. The
// channel is closed by cancel or when the controller stops.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.subsMu.Lock()
	if c.subsClosed {
		c.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.Snapshot()
	c.subsMu.Unlock()

	cancel := func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish copies the loop's working state into the shared snapshot and
// fans it out. Called on the loop goroutine only.
func (c *Controller) publish() {
	c.state.UpdatedAt = time.Now()
	snap := c.state

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Controller) closeSubscribers() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subsClosed = true
}
