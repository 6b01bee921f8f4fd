package lru

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](2, nil)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit with value 1, got %v %v", v, ok)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := New[string, int](2, func(key string, value int) {
		evicted = append(evicted, key)
	})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // touch a, making b the LRU
	c.Set("c", 3)

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("expected b to be evicted, got %v", evicted)
	}
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be gone")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive eviction")
	}
}

func TestCacheRemoveInvokesOnEvict(t *testing.T) {
	var gotKey string
	var gotValue int
	c := New[string, int](0, func(key string, value int) {
		gotKey, gotValue = key, value
	})

	c.Set("a", 7)
	c.Remove("a")

	if gotKey != "a" || gotValue != 7 {
		t.Fatalf("expected onEvict(a, 7), got (%s, %d)", gotKey, gotValue)
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be removed")
	}
}

func TestCacheGetOrLoadSingleFlightsConcurrentMisses(t *testing.T) {
	c := New[string, int](10, nil)

	var calls atomic.Int32
	var wg sync.WaitGroup
	results := make([]int, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := c.GetOrLoad("k", func() (int, error) {
				calls.Add(1)
				return 42, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[idx] = v
		}(i)
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected exactly one factory invocation, got %d", calls.Load())
	}
	for _, v := range results {
		if v != 42 {
			t.Fatalf("expected every waiter to see 42, got %d", v)
		}
	}
}

func TestCacheGetOrLoadHitReportsMissThenHit(t *testing.T) {
	c := New[string, int](10, nil)

	_, hit, err := c.GetOrLoadHit("k", func() (int, error) { return 1, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Fatalf("expected the first load to report a miss")
	}

	v, hit, err := c.GetOrLoadHit("k", func() (int, error) { return 2, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Fatalf("expected the second load to report a hit")
	}
	if v != 1 {
		t.Fatalf("expected the cached value 1 to survive, got %d", v)
	}
}

func TestCacheGetOrLoadDoesNotCacheFailures(t *testing.T) {
	c := New[string, int](10, nil)
	boom := errors.New("boom")

	attempts := 0
	_, err := c.GetOrLoad("k", func() (int, error) {
		attempts++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	v, err := c.GetOrLoad("k", func() (int, error) {
		attempts++
		return 9, nil
	})
	if err != nil || v != 9 {
		t.Fatalf("expected second attempt to succeed with 9, got %v %v", v, err)
	}
	if attempts != 2 {
		t.Fatalf("expected the factory to be retried after a failure, got %d attempts", attempts)
	}
}
