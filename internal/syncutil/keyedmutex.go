// Package syncutil provides keyed locking primitives.
package syncutil

import (
	"hash/fnv"
	"sync"
)

const shardCount = 128

// KeyedMutex is a fixed pool of mutexes addressed by string key. It gives
// per-key mutual exclusion with bounded memory no matter how many keys are
// seen; keys that hash to the same shard occasionally contend with each
// other, which is acceptable for short critical sections.
type KeyedMutex struct {
	shards [shardCount]sync.Mutex
}

// Lock acquires the mutex for the key and returns its unlock function.
//
//	unlock := mu.Lock(userID)
//	defer unlock()
func (m *KeyedMutex) Lock(key string) func() {
	mu := m.shard(key)
	mu.Lock()
	return mu.Unlock
}

func (m *KeyedMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%shardCount]
}
