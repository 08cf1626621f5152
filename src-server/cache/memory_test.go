package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"eventfair/src-server/cache"
)

func newMemory(t *testing.T, size int) *cache.Memory {
	t.Helper()
	c, err := cache.NewMemory(size, cache.Observer{})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func counter(calls *int32, value any) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestGetOrComputeMemoizes(t *testing.T) {
	c := newMemory(t, 16)
	ctx := context.Background()
	var calls int32

	for i := 0; i < 3; i++ {
		value, err := c.GetOrCompute(ctx, "k", []string{"a"}, counter(&calls, "v"))
		if err != nil {
			t.Fatal(err)
		}
		if value != "v" {
			t.Errorf("value = %v, want v", value)
		}
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestInvalidateOnlyDropsTaggedEntries(t *testing.T) {
	c := newMemory(t, 16)
	ctx := context.Background()
	var callsA, callsB int32

	c.GetOrCompute(ctx, "ka", []string{"a", "shared"}, counter(&callsA, 1))
	c.GetOrCompute(ctx, "kb", []string{"b"}, counter(&callsB, 2))

	c.Invalidate(ctx, "a")

	c.GetOrCompute(ctx, "ka", []string{"a", "shared"}, counter(&callsA, 1))
	c.GetOrCompute(ctx, "kb", []string{"b"}, counter(&callsB, 2))
	if callsA != 2 {
		t.Errorf("tagged entry computed %d times, want 2", callsA)
	}
	if callsB != 1 {
		t.Errorf("untagged entry computed %d times, want 1", callsB)
	}

	// case: any one of an entry's tags drops it
	c.Invalidate(ctx, "shared")
	c.GetOrCompute(ctx, "ka", []string{"a", "shared"}, counter(&callsA, 1))
	if callsA != 3 {
		t.Errorf("entry computed %d times after second tag invalidated, want 3", callsA)
	}

	// case: unknown tags are a no-op
	c.Invalidate(ctx, "nobody-uses-this")
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	c := newMemory(t, 16)
	ctx := context.Background()
	boom := errors.New("boom")

	if _, err := c.GetOrCompute(ctx, "k", nil, func(context.Context) (any, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	var calls int32
	value, err := c.GetOrCompute(ctx, "k", nil, counter(&calls, "ok"))
	if err != nil {
		t.Fatal(err)
	}
	if value != "ok" || calls != 1 {
		t.Errorf("value = %v calls = %d, want ok and 1", value, calls)
	}
}

func TestInvalidationDuringComputeIsNotStored(t *testing.T) {
	c := newMemory(t, 16)
	ctx := context.Background()

	value, err := c.GetOrCompute(ctx, "k", []string{"a"}, func(ctx context.Context) (any, error) {
		// a write lands while the read is in flight
		c.Invalidate(ctx, "a")
		return "stale", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if value != "stale" {
		t.Errorf("in-flight caller got %v, want its own result", value)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, raced result should not be stored", c.Len())
	}

	var calls int32
	value, _ = c.GetOrCompute(ctx, "k", []string{"a"}, counter(&calls, "fresh"))
	if value != "fresh" || calls != 1 {
		t.Errorf("value = %v calls = %d, want a fresh compute", value, calls)
	}
}

func TestConcurrentMissesShareCompute(t *testing.T) {
	c := newMemory(t, 16)
	ctx := context.Background()
	release := make(chan struct{})
	var calls int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := c.GetOrCompute(ctx, "k", []string{"a"}, func(context.Context) (any, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return "v", nil
			})
			if err != nil || value != "v" {
				t.Errorf("GetOrCompute() = %v, %v", value, err)
			}
		}()
	}
	close(release)
	wg.Wait()

	// late arrivals either join the flight or hit the stored entry
	if n := atomic.LoadInt32(&calls); n < 1 {
		t.Errorf("compute ran %d times", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestEvictionUnindexes(t *testing.T) {
	evictedTags := make(map[string]int)
	c, err := cache.NewMemory(2, cache.Observer{
		Invalidate: func(tag string, evicted int) { evictedTags[tag] += evicted },
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	var calls int32

	c.GetOrCompute(ctx, "k1", []string{"a"}, counter(&calls, 1))
	c.GetOrCompute(ctx, "k2", []string{"a"}, counter(&calls, 2))
	c.GetOrCompute(ctx, "k3", []string{"b"}, counter(&calls, 3)) // evicts k1

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	c.Invalidate(ctx, "a")
	if evictedTags["a"] != 1 {
		t.Errorf("invalidate a removed %d entries, want 1", evictedTags["a"])
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestWrap(t *testing.T) {
	c := newMemory(t, 16)
	ctx := context.Background()
	var calls int32

	double := cache.Wrap(c,
		func(n int) string { return "double" },
		func(n int) []string { return []string{"math"} },
		func(ctx context.Context, n int) (int, error) {
			atomic.AddInt32(&calls, 1)
			return n * 2, nil
		},
	)
	if got, err := double(ctx, 2); err != nil || got != 4 {
		t.Fatalf("double(2) = %d, %v", got, err)
	}
	// same key so the memoized value wins
	if got, _ := double(ctx, 3); got != 4 {
		t.Errorf("double(3) = %d, want memoized 4", got)
	}

	// case: type mismatch under a shared key is an error
	asString := cache.Wrap(c,
		func(n int) string { return "double" },
		func(n int) []string { return []string{"math"} },
		func(ctx context.Context, n int) (string, error) { return "", nil },
	)
	if _, err := asString(ctx, 1); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestTags(t *testing.T) {
	for got, want := range map[string]string{
		cache.EventTag("42"):              "event-42",
		cache.CategoryEventsTag("c1"):     "category-events-c1",
		cache.UserRegistrationsTag("u1"):  "user-registrations-u1",
		cache.RegistrationTag("u1", "e1"): "registration-u1-e1",
		cache.EventCategoriesTag:          "event-categories",
	} {
		if got != want {
			t.Errorf("tag = %q, want %q", got, want)
		}
	}
}
