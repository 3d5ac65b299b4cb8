package cache_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sandrolain/gognl/pkg/cache"
)

func TestLRUNew(t *testing.T) {
	c := cache.New[string, int](10)
	if got := c.Len(); got != 0 {
		t.Fatalf("expected empty cache, got %d", got)
	}
	if got := c.Capacity(); got != 10 {
		t.Fatalf("expected capacity 10, got %d", got)
	}
}

func TestLRUDefaultCapacity(t *testing.T) {
	c := cache.New[string, int](0)
	if got := c.Capacity(); got != cache.DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", cache.DefaultCapacity, got)
	}
}

func TestLRUSetGet(t *testing.T) {
	c := cache.New[string, int](4)
	c.Set("a", 1)
	if got := c.Len(); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("expected hit with 1, got %d, %v", got, ok)
	}
	c.Set("a", 2)
	if got, _ := c.Get("a"); got != 2 {
		t.Fatalf("expected replaced value 2, got %d", got)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestLRUEviction(t *testing.T) {
	c := cache.New[string, int](3)
	for i, k := range []string{"a", "b", "c"} {
		c.Set(k, i)
	}
	// Touch "a" so "b" becomes the least recently used entry.
	c.Get("a")
	c.Set("d", 3)

	if got := c.Len(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal(`expected "b" to be evicted (LRU)`)
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %q to survive", k)
		}
	}
}

func TestLRUInvalidateClear(t *testing.T) {
	c := cache.New[int, string](4)
	c.Set(1, "x")
	c.Set(2, "y")
	c.Invalidate(1)
	if _, ok := c.Get(1); ok {
		t.Fatal("expected miss after Invalidate")
	}
	c.Clear()
	if got := c.Len(); got != 0 {
		t.Fatalf("expected 0 after Clear, got %d", got)
	}
}

func TestLRUGetOrCompute(t *testing.T) {
	c := cache.New[string, int](4)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	for range 3 {
		v, err := c.GetOrCompute("k", compute)
		if err != nil || v != 42 {
			t.Fatalf("GetOrCompute = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 compute call, got %d", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrCompute("bad", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatal("errors must not be cached")
	}
}

func TestOnceMapComputesOnceUnderContention(t *testing.T) {
	var m cache.OnceMap[string, int]
	var calls atomic.Int64

	const goroutines = 64
	var wg sync.WaitGroup
	results := make([]int, goroutines)
	start := make(chan struct{})
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i] = m.Get("key", func(string) int {
				calls.Add(1)
				return 7
			})
		}()
	}
	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single computation, got %d", got)
	}
	for i, r := range results {
		if r != 7 {
			t.Fatalf("goroutine %d observed %d", i, r)
		}
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", m.Len())
	}
}

func TestOnceMapDeleteClear(t *testing.T) {
	var m cache.OnceMap[int, int]
	calls := 0
	compute := func(k int) int {
		calls++
		return k * 2
	}
	m.Get(1, compute)
	m.Get(2, compute)
	m.Delete(1)
	if got := m.Get(1, compute); got != 2 || calls != 3 {
		t.Fatalf("expected recompute after Delete, got %d with %d calls", got, calls)
	}
	m.Clear()
	if m.Len() != 0 {
		t.Fatalf("expected empty map after Clear, got %d", m.Len())
	}
}
