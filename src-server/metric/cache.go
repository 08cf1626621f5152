package metric

import (
	"strings"

	"eventfair/src-server/cache"

	"github.com/prometheus/client_golang/prometheus"
)

var tagKinds = []string{
	cache.EventCategoriesTag,
	"category-events",
	"user-registrations",
	"registration",
	"event",
}

// Tag without its identifiers, to keep label cardinality bounded.
func tagKind(tag string) string {
	for _, kind := range tagKinds {
		if tag == kind || strings.HasPrefix(tag, kind+"-") {
			return kind
		}
	}
	return "other"
}

// Observer counting cache hits, misses, discarded computes and invalidated
// entries.
func CacheObserver() cache.Observer {
	lookups := register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventfair_cache_lookups_total",
		Help: "Cache lookups by result (hit, miss, discard)",
	}, []string{"result"}), "eventfair_cache_lookups_total")
	invalidated := register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventfair_cache_invalidated_entries_total",
		Help: "Cache entries dropped by tag invalidation, by tag kind",
	}, []string{"kind"}), "eventfair_cache_invalidated_entries_total")

	return cache.Observer{
		Hit: func(string) {
			lookups.WithLabelValues("hit").Inc()
		},
		Miss: func(string) {
			lookups.WithLabelValues("miss").Inc()
		},
		Discard: func(string) {
			lookups.WithLabelValues("discard").Inc()
		},
		Invalidate: func(tag string, evicted int) {
			invalidated.WithLabelValues(tagKind(tag)).Add(float64(evicted))
		},
	}
}
