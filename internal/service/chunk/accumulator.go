package chunk

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrIncomplete is returned by Merge when a slot has no transcript yet.
var ErrIncomplete = errors.New("transcript accumulator incomplete")

type slot struct {
	text   string
	filled bool
	err    error
}

// Accumulator collects per-chunk transcripts by index. It merges only when
// every slot is filled; a failed slot fails the merge.
type Accumulator struct {
	mu    sync.Mutex
	slots []slot
}

// NewAccumulator creates an accumulator with count empty slots.
func NewAccumulator(count int) *Accumulator {
	return &Accumulator{slots: make([]slot, count)}
}

// Len returns the number of slots.
func (a *Accumulator) Len() int {
	return len(a.slots)
}

// Set stores the transcript for index.
func (a *Accumulator) Set(index int, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.slots) {
		return fmt.Errorf("chunk index %d out of range [0,%d)", index, len(a.slots))
	}
	a.slots[index] = slot{text: text, filled: true}
	return nil
}

// Fail marks index as failed with err.
func (a *Accumulator) Fail(index int, err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.slots) {
		return fmt.Errorf("chunk index %d out of range [0,%d)", index, len(a.slots))
	}
	a.slots[index] = slot{err: err}
	return nil
}

// Filled returns how many slots hold a transcript.
func (a *Accumulator) Filled() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, s := range a.slots {
		if s.filled {
			n++
		}
	}
	return n
}

// Merge joins all transcripts in index order with a single space.
func (a *Accumulator) Merge() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	texts := make([]string, len(a.slots))
	for i, s := range a.slots {
		if s.err != nil {
			return "", fmt.Errorf("chunk %d: %w", i, s.err)
		}
		if !s.filled {
			return "", fmt.Errorf("%w: chunk %d missing", ErrIncomplete, i)
		}
		texts[i] = s.text
	}
	return strings.Join(texts, " "), nil
}
