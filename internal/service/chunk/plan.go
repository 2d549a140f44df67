// Package chunk splits long recordings into bounded time segments and
// transcribes them in strict index order.
package chunk

import (
	"math"

	"meeting-summary-service/internal/failure"
)

// Chunk describes one contiguous time slice of the source audio.
type Chunk struct {
	Index           int     `json:"index"`
	StartSeconds    float64 `json:"startSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// End returns the exclusive end offset of the chunk.
func (c Chunk) End() float64 {
	return c.StartSeconds + c.DurationSeconds
}

// Plan divides [0, total) into ceil(total/chunkLength) chunks of chunkLength
// seconds; the last chunk holds the remainder.
func Plan(total, chunkLength float64) ([]Chunk, error) {
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return nil, failure.Newf(failure.KindUnknownDuration, "plan chunks", "source duration %v is not usable", total)
	}
	if math.IsNaN(chunkLength) || math.IsInf(chunkLength, 0) || chunkLength <= 0 {
		return nil, failure.Newf(failure.KindUnknownDuration, "plan chunks", "chunk length %v is not usable", chunkLength)
	}

	count := int(math.Ceil(total / chunkLength))
	if count < 1 {
		count = 1
	}

	chunks := make([]Chunk, count)
	for i := range chunks {
		start := float64(i) * chunkLength
		duration := chunkLength
		if i == count-1 {
			duration = math.Max(0, total-start)
		}
		chunks[i] = Chunk{Index: i, StartSeconds: start, DurationSeconds: duration}
	}
	return chunks, nil
}

// ShouldChunk reports whether a file of size bytes exceeds threshold and
// must take the chunked path. A file of exactly threshold bytes does not.
func ShouldChunk(size, threshold int64) bool {
	return size > threshold
}
