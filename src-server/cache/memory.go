package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	value any
	tags  []string
}

// In-process Cache bounded by an LRU. Concurrent misses on the same key share
// one compute.
type Memory struct {
	mu      sync.Mutex
	entries *simplelru.LRU[string, entry]
	index   map[string]map[string]struct{} // tag -> keys

	// Only tags with a lookup in progress are tracked, so both maps are
	// bounded by the number of concurrent misses.
	inflight    map[string]int    // tag -> lookups in progress
	generations map[string]uint64 // tag -> invalidations during those lookups

	flights  singleflight.Group
	observer Observer
}

var _ Cache = (*Memory)(nil)

func NewMemory(size int, observer Observer) (*Memory, error) {
	m := &Memory{
		index:       make(map[string]map[string]struct{}),
		inflight:    make(map[string]int),
		generations: make(map[string]uint64),
		observer:    observer,
	}
	entries, err := simplelru.NewLRU[string, entry](size, m.unindex)
	if err != nil {
		return nil, fmt.Errorf("cache.NewMemory: %w", err)
	}
	m.entries = entries
	return m, nil
}

// Number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries.Len()
}

func (m *Memory) GetOrCompute(ctx context.Context, key string, tags []string, compute func(ctx context.Context) (any, error)) (any, error) {
	m.mu.Lock()
	if cached, ok := m.entries.Get(key); ok {
		m.mu.Unlock()
		if m.observer.Hit != nil {
			m.observer.Hit(key)
		}
		return cached.value, nil
	}
	generation := m.generation(tags)
	m.track(tags)
	m.mu.Unlock()
	defer m.untrack(tags)

	if m.observer.Miss != nil {
		m.observer.Miss(key)
	}

	// Readers arriving after an invalidation see a new generation and must not
	// join a flight started before it.
	flightKey := fmt.Sprintf("%s\x00%d", key, generation)
	value, err, _ := m.flights.Do(flightKey, func() (any, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.generation(tags) != generation {
			if m.observer.Discard != nil {
				m.observer.Discard(key)
			}
			return value, nil
		}
		if _, ok := m.entries.Peek(key); ok {
			m.entries.Remove(key)
		}
		m.entries.Add(key, entry{value: value, tags: tags})
		for _, tag := range tags {
			keys, ok := m.index[tag]
			if !ok {
				keys = make(map[string]struct{})
				m.index[tag] = keys
			}
			keys[key] = struct{}{}
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (m *Memory) Invalidate(ctx context.Context, tags ...string) {
	evicted := make([]int, len(tags))

	m.mu.Lock()
	for i, tag := range tags {
		if m.inflight[tag] > 0 {
			m.generations[tag]++
		}
		keys := make([]string, 0, len(m.index[tag]))
		for key := range m.index[tag] {
			keys = append(keys, key)
		}
		for _, key := range keys {
			if m.entries.Remove(key) {
				evicted[i]++
			}
		}
	}
	m.mu.Unlock()

	if m.observer.Invalidate != nil {
		for i, tag := range tags {
			m.observer.Invalidate(tag, evicted[i])
		}
	}
}

// Sum of the tags' generations. While a lookup holds its tags tracked they
// only grow, so the sum it saw changes whenever one of them is invalidated.
// Caller holds mu.
func (m *Memory) generation(tags []string) uint64 {
	var sum uint64
	for _, tag := range tags {
		sum += m.generations[tag]
	}
	return sum
}

// Caller holds mu.
func (m *Memory) track(tags []string) {
	for _, tag := range tags {
		m.inflight[tag]++
	}
}

// Runs after flights.Do has returned, when the flight key is already gone, so
// a generation reset to zero can't let a new reader join a stale flight.
func (m *Memory) untrack(tags []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		m.inflight[tag]--
		if m.inflight[tag] <= 0 {
			delete(m.inflight, tag)
			delete(m.generations, tag)
		}
	}
}

// Called by the LRU on eviction and removal, with mu held.
func (m *Memory) unindex(key string, e entry) {
	for _, tag := range e.tags {
		keys := m.index[tag]
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.index, tag)
		}
	}
}
