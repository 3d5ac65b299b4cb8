package cache

import (
	"sync"
	"sync/atomic"
)

// onceEntry holds one lazily computed value.
type onceEntry[V any] struct {
	once  sync.Once
	value V
}

// OnceMap is a concurrent map whose values are computed at most once per key.
// Readers racing on a missing key share a single computation; every caller
// observes the same value.
//
// THREAD-SAFETY: the map itself is a sync.Map; each entry publishes its value
// through sync.Once, so a value is fully initialised before any reader sees it.
type OnceMap[K comparable, V any] struct {
	m sync.Map // K -> *onceEntry[V]
	n atomic.Int64
}

// Get returns the value for key, computing it with compute if this is the
// first request for key.
func (m *OnceMap[K, V]) Get(key K, compute func(K) V) V {
	e, ok := m.m.Load(key)
	if !ok {
		var loaded bool
		e, loaded = m.m.LoadOrStore(key, &onceEntry[V]{})
		if !loaded {
			m.n.Add(1)
		}
	}
	oe := e.(*onceEntry[V])
	oe.once.Do(func() { oe.value = compute(key) })
	return oe.value
}

// Delete forgets the value for key; the next Get recomputes it.
func (m *OnceMap[K, V]) Delete(key K) {
	if _, loaded := m.m.LoadAndDelete(key); loaded {
		m.n.Add(-1)
	}
}

// Clear forgets every value.
func (m *OnceMap[K, V]) Clear() {
	m.m.Range(func(k, _ any) bool {
		if _, loaded := m.m.LoadAndDelete(k); loaded {
			m.n.Add(-1)
		}
		return true
	})
}

// Len returns the number of keys with a value or a computation in flight.
func (m *OnceMap[K, V]) Len() int {
	return int(m.n.Load())
}
