// Package cache provides the thread-safe caches behind member resolution.
//
// Two shapes are offered:
//
//   - LRU: a bounded least-recently-used cache, used for memoized overload
//     selections whose key space (type, method, argument types) is open ended.
//   - OnceMap: an unbounded compute-once map, used for per-type reflective
//     scans whose key space is bounded by the set of types a program touches.
//
// # Example
//
//	c := cache.New[string, int](1024)
//	n, err := c.GetOrCompute("answer", func() (int, error) { return 42, nil })
package cache

import (
	"container/list"
	"sync"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// entry is a cache entry stored in the doubly-linked list.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a thread-safe LRU (Least Recently Used) cache.
// Once the capacity is reached, the least recently accessed entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type LRU[K comparable, V any] struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[K]*list.Element
}

// New creates a new LRU cache with the given capacity.
// capacity must be > 0; if <= 0, DefaultCapacity is used.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[K, V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[K]*list.Element, capacity),
	}
}

// Get retrieves a value from the cache and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	// The front element needs no promotion, so the write lock is skipped.
	alreadyFront := ok && c.ll.Front() == el
	var v V
	if ok {
		v = el.Value.(*entry[K, V]).value
	}
	c.mu.RUnlock()
	if !ok {
		return v, false
	}

	if !alreadyFront {
		// Re-check in case of concurrent eviction.
		c.mu.Lock()
		if el, ok = c.items[key]; ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()
	}
	return v, true
}

// Set inserts or replaces a value.
// If at capacity, the least recently used entry is evicted first.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, value: value})
}

// GetOrCompute returns the cached value for key or calls compute, caches its
// result and returns it. Errors are not cached.
func (c *LRU[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Len returns the number of entries currently in the cache.
func (c *LRU[K, V]) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}

// Invalidate removes a single entry from the cache.
func (c *LRU[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries from the cache.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[K]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held for writing.
func (c *LRU[K, V]) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}
