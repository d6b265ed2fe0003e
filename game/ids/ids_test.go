package ids

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDSource(t *testing.T) {
	src := NewUUIDSource()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := src.Next()
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSequence(t *testing.T) {
	seq := NewSequence("player")
	assert.Equal(t, "player-1", seq.Next())
	assert.Equal(t, "player-2", seq.Next())
}

func TestSequenceConcurrent(t *testing.T) {
	seq := NewSequence("room")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				id := seq.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}
