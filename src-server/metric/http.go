package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Records request durations by route pattern and status.
func HTTPObserver() func(method string, pattern string, status int, duration time.Duration) {
	durations := register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventfair_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "pattern", "status"}), "eventfair_http_request_duration_seconds")

	return func(method string, pattern string, status int, duration time.Duration) {
		durations.WithLabelValues(method, pattern, strconv.Itoa(status)).Observe(duration.Seconds())
	}
}
