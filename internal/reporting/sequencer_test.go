package reporting

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencerSupersedes(t *testing.T) {
	var seq Sequencer
	first := seq.Next()
	second := seq.Next()

	assert.False(t, seq.Current(first))
	assert.True(t, seq.Current(second))
}

func TestSequencerConcurrentTokensAreUnique(t *testing.T) {
	var seq Sequencer
	var mu sync.Mutex
	seen := make(map[Token]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok := seq.Next()
			mu.Lock()
			seen[tok] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
	assert.True(t, seq.Current(Token(50)))
}
