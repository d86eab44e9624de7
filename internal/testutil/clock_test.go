package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResettableClock_Sequence(t *testing.T) {
	clock := NewResettableClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())
}

func TestResettableClock_ResetReplaysSameValues(t *testing.T) {
	clock := NewResettableClock()
	first := []int64{clock.Next(), clock.Next(), clock.Next()}

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())

	second := []int64{clock.Next(), clock.Next(), clock.Next()}
	assert.Equal(t, first, second)
}

func TestResettableClock_ConcurrentNextIsUnique(t *testing.T) {
	clock := NewResettableClock()
	const workers, calls = 50, 40

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := clock.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*calls)
	assert.Equal(t, int64(workers*calls), clock.Current())
}
