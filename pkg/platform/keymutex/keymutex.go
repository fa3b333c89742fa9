// Package keymutex provides per-key mutual exclusion over a fixed set of
// mutex shards. Each claim is an independent unit of concurrency: operations
// on different claims land on different shards (modulo hash collisions) and
// never block one another, while two mutations of the same claim always
// serialize.
package keymutex

import "sync"

// numShards trades memory for contention. 128 shards keep collisions rare
// without allocating a mutex per live key.
const numShards = 128

// KeyMutex is a sharded mutex keyed by string.
type KeyMutex struct {
	shards [numShards]sync.Mutex
}

// New returns a ready-to-use KeyMutex.
func New() *KeyMutex {
	return &KeyMutex{}
}

// Lock acquires the shard owning key and returns the unlock function.
//
//	unlock := km.Lock(claimID.String())
//	defer unlock()
func (m *KeyMutex) Lock(key string) func() {
	shard := &m.shards[hashString(key)%numShards]
	shard.Lock()
	return shard.Unlock
}

// hashString is FNV-1a; good distribution for UUID strings at trivial cost.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
