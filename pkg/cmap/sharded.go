package cmap

import (
	"hash/maphash"
	"sync"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe sharded map. Keys are distributed across
// shards by a seeded maphash, so independent keys rarely contend on
// the same lock.
type Map[K comparable, V any] struct {
	shards    []*shard[K, V]
	shardMask uint64
	seed      maphash.Seed
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a Map with DefaultShardCount shards.
func New[K comparable, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount)
}

// NewWithShards creates a Map with the given shard count, rounded up
// to the next power of two.
func NewWithShards[K comparable, V any](count int) *Map[K, V] {
	if count < 1 {
		count = 1
	}
	n := 1
	for n < count {
		n <<= 1
	}
	m := &Map[K, V]{
		shards:    make([]*shard[K, V], n),
		shardMask: uint64(n - 1),
		seed:      maphash.MakeSeed(),
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	h := maphash.Comparable(m.seed, key)
	return m.shards[h&m.shardMask]
}

// Get returns the value stored for key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok
}

// Set stores value under key, replacing any existing value.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// GetOrCompute returns the value for key, calling compute to create it
// if absent. compute runs under the shard lock, so at most one caller
// creates the value for a given key; keep it cheap and non-blocking.
// The second return reports whether the value already existed.
func (m *Map[K, V]) GetOrCompute(key K, compute func() V) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	if v, ok := s.items[key]; ok {
		s.mu.RUnlock()
		return v, true
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[key]; ok {
		return v, true
	}
	v := compute()
	s.items[key] = v
	return v, false
}

// Delete removes key and returns the value it held, if any.
func (m *Map[K, V]) Delete(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	s.mu.Unlock()
	return v, ok
}

// Len returns the total number of entries across all shards.
func (m *Map[K, V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for every entry. Iteration takes each shard's read
// lock in turn; fn must not call back into the Map. Returning false
// stops the walk.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns a snapshot of all keys.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	for _, s := range m.shards {
		s.mu.RLock()
		for k := range s.items {
			keys = append(keys, k)
		}
		s.mu.RUnlock()
	}
	return keys
}
