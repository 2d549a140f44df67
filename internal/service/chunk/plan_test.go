package chunk

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-summary-service/internal/failure"
)

func TestPlan_TwentyFiveMinutes(t *testing.T) {
	chunks, err := Plan(1500, 600)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, Chunk{Index: 0, StartSeconds: 0, DurationSeconds: 600}, chunks[0])
	assert.Equal(t, Chunk{Index: 1, StartSeconds: 600, DurationSeconds: 600}, chunks[1])
	assert.Equal(t, Chunk{Index: 2, StartSeconds: 1200, DurationSeconds: 300}, chunks[2])
}

func TestPlan_CoversSourceExactly(t *testing.T) {
	tests := []struct {
		total     float64
		length    float64
		wantCount int
	}{
		{1, 600, 1},
		{600, 600, 1},
		{600.5, 600, 2},
		{1200, 600, 2},
		{3599.9, 600, 6},
		{7200, 600, 12},
		{45.25, 10, 5},
	}

	for _, tt := range tests {
		chunks, err := Plan(tt.total, tt.length)
		require.NoError(t, err)
		require.Len(t, chunks, tt.wantCount, "total=%v length=%v", tt.total, tt.length)

		var sum float64
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.GreaterOrEqual(t, c.DurationSeconds, 0.0)
			if i > 0 {
				assert.InDelta(t, chunks[i-1].End(), c.StartSeconds, 1e-9, "chunks must be contiguous")
			}
			sum += c.DurationSeconds
		}
		assert.Equal(t, 0.0, chunks[0].StartSeconds)
		assert.InDelta(t, tt.total, sum, 1e-9)
		assert.InDelta(t, tt.total, chunks[len(chunks)-1].End(), 1e-9)
	}
}

func TestPlan_UnusableDuration(t *testing.T) {
	for _, total := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Plan(total, 600)
		require.Error(t, err, "total=%v", total)
		assert.True(t, errors.Is(err, failure.ErrUnknownDuration))
	}
}

func TestPlan_UnusableChunkLength(t *testing.T) {
	_, err := Plan(100, 0)
	assert.True(t, errors.Is(err, failure.ErrUnknownDuration))
}

func TestShouldChunk_Boundary(t *testing.T) {
	const threshold = 20 * 1024 * 1024

	assert.False(t, ShouldChunk(threshold-1, threshold))
	assert.False(t, ShouldChunk(threshold, threshold), "exactly threshold stays single-shot")
	assert.True(t, ShouldChunk(threshold+1, threshold))
	assert.True(t, ShouldChunk(25*1024*1024, threshold))
}

func TestShouldChunk_Idempotent(t *testing.T) {
	for _, size := range []int64{0, 1, 20 * 1024 * 1024, 20*1024*1024 + 1} {
		first := ShouldChunk(size, 20*1024*1024)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, ShouldChunk(size, 20*1024*1024))
		}
	}
}
