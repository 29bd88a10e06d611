// Package cmap provides a generic sharded concurrent map.
//
// It spreads keys over a fixed set of shards, each guarded by its own
// RWMutex, so concurrent access to unrelated keys does not serialize
// on a single lock. The sharded client uses it as a lazily populated
// registry of per-node clients.
//
//	m := cmap.New[string, *redis.Client]()
//	c, _ := m.GetOrCompute(addr, func() *redis.Client { ... })
package cmap
