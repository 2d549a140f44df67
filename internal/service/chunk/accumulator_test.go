package chunk

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_MergeOrderIndependentOfSetOrder(t *testing.T) {
	texts := []string{"a", "b", "c", "d", "e"}
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		acc := NewAccumulator(len(texts))
		for _, i := range rng.Perm(len(texts)) {
			require.NoError(t, acc.Set(i, texts[i]))
		}

		merged, err := acc.Merge()
		require.NoError(t, err)
		assert.Equal(t, "a b c d e", merged)
	}
}

func TestAccumulator_IncompleteMergeFails(t *testing.T) {
	acc := NewAccumulator(3)
	require.NoError(t, acc.Set(0, "a"))
	require.NoError(t, acc.Set(2, "c"))

	_, err := acc.Merge()
	assert.True(t, errors.Is(err, ErrIncomplete))
	assert.Equal(t, 2, acc.Filled())
}

func TestAccumulator_FailedSlotFailsMerge(t *testing.T) {
	cause := errors.New("stt down")
	acc := NewAccumulator(3)
	require.NoError(t, acc.Set(0, "a"))
	require.NoError(t, acc.Fail(1, cause))
	require.NoError(t, acc.Set(2, "c"))

	merged, err := acc.Merge()
	assert.Empty(t, merged)
	assert.True(t, errors.Is(err, cause))
}

func TestAccumulator_OutOfRange(t *testing.T) {
	acc := NewAccumulator(2)
	assert.Error(t, acc.Set(2, "x"))
	assert.Error(t, acc.Set(-1, "x"))
	assert.Error(t, acc.Fail(5, errors.New("x")))
}

func TestAccumulator_SingleSlot(t *testing.T) {
	acc := NewAccumulator(1)
	require.NoError(t, acc.Set(0, "only"))

	merged, err := acc.Merge()
	require.NoError(t, err)
	assert.Equal(t, "only", merged)
}
