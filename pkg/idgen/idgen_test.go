package idgen

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	seq := NewSequence(100)

	first, err := seq.NextID()
	require.NoError(t, err)
	second, err := seq.NextID()
	require.NoError(t, err)

	assert.Equal(t, uint64(100), first)
	assert.Equal(t, uint64(101), second)
}

func TestSequence_ZeroStart(t *testing.T) {
	id, err := NewSequence(0).NextID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestSequence_Exhausted(t *testing.T) {
	seq := NewSequence(math.MaxUint64)

	_, err := seq.NextID()
	require.NoError(t, err)

	_, err = seq.NextID()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSequence_Concurrent(t *testing.T) {
	seq := NewSequence(1)
	const workers, perWorker = 8, 250

	var mu sync.Mutex
	seen := make(map[uint64]bool, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id, err := seq.NextID()
				assert.NoError(t, err)
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestSonyflake_Unique(t *testing.T) {
	gen, err := NewSonyflake(SonyflakeConfig{MachineID: 7})
	require.NoError(t, err)

	a, err := gen.NextID()
	require.NoError(t, err)
	b, err := gen.NextID()
	require.NoError(t, err)

	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)
	assert.Greater(t, b, a)
}

func TestFailing(t *testing.T) {
	boom := errors.New("clock moved backwards")
	_, err := Failing(boom).NextID()
	assert.Equal(t, boom, err)
}
