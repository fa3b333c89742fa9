package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	km := New()
	const goroutines = 64

	var counter int
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("claim-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	require.Equal(t, goroutines, counter)
}

func TestLockIsReentrantPerCall(t *testing.T) {
	km := New()
	unlock := km.Lock("a")
	unlock()
	// A second acquisition after release must not deadlock.
	unlock = km.Lock("a")
	unlock()
}

func TestHashDistribution(t *testing.T) {
	// Different UUID-shaped keys should not all collapse onto one shard.
	seen := map[uint32]bool{}
	keys := []string{
		"0d9adcc3-43e3-40ab-bbbd-cd0e1bbb726b",
		"6a1b2f7c-9c83-4fda-b9e0-52ad29b1f001",
		"e55b8201-67b2-4f16-8f2f-28c8c16a1a11",
		"fab64cb2-3a51-44d0-947c-6565bc86b94f",
	}
	for _, k := range keys {
		seen[hashString(k)%numShards] = true
	}
	assert.Greater(t, len(seen), 1)
}
