// The `cache` package memoizes read results under tags and drops exactly the
// entries carrying a tag when that tag is invalidated.
//
// # Guarantees:
//   - A read issued after Invalidate(tag) returned never observes a value
//     computed before that call: computes racing an invalidation are handed
//     to their caller but never stored.
//   - Invalidating one tag leaves entries that don't carry it untouched.
//   - Errors are never cached.
//
// # Example usage:
//
//	c, _ := cache.NewMemory(1024, cache.Observer{})
//	getEvent := cache.Wrap(c,
//		func(id string) string { return "event:" + id },
//		func(id string) []string { return []string{cache.EventTag(id)} },
//		store.GetEvent,
//	)
//	event, err := getEvent(ctx, "42")
//	c.Invalidate(ctx, cache.EventTag("42"))
package cache

import (
	"context"
	"fmt"
)

// Read-through memoization keyed by string, invalidated by tag.
type Cache interface {
	// Return the value stored under key, or run compute, tag its result and
	// store it.
	GetOrCompute(ctx context.Context, key string, tags []string, compute func(ctx context.Context) (any, error)) (any, error)
	// Drop every entry carrying at least one of the tags. Synchronous.
	Invalidate(ctx context.Context, tags ...string)
}

// Hooks for instrumentation; any field may be nil.
type Observer struct {
	Hit        func(key string)
	Miss       func(key string)
	Invalidate func(tag string, evicted int)
	Discard    func(key string)
}

// Decorate a read so its results are memoized in c under key(arg), tagged
// with tags(arg).
func Wrap[A any, T any](
	c Cache,
	key func(A) string,
	tags func(A) []string,
	read func(context.Context, A) (T, error),
) func(context.Context, A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		var zero T
		value, err := c.GetOrCompute(ctx, key(arg), tags(arg), func(ctx context.Context) (any, error) {
			return read(ctx, arg)
		})
		if err != nil {
			return zero, err
		}
		typed, ok := value.(T)
		if !ok {
			return zero, fmt.Errorf("cache.Wrap: cached value for %q has type %T, want %T", key(arg), value, zero)
		}
		return typed, nil
	}
}
