// The `metric` package exposes the Prometheus collectors of the server. All
// collectors live in the default registry served at `GET /metrics`.
package metric

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Register c, or return the collector already registered under its name.
func register[T prometheus.Collector](c T, name string) T {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		slog.Error("can't register "+name+" metric", "error", err)
		return c
	}
	slog.Debug(name + " metric registered")
	return c
}

func unregister(c prometheus.Collector, name string) {
	switch prometheus.Unregister(c) {
	case true:
		slog.Debug(name + " metric unregistered")
	case false:
		slog.Warn(name + " metric not registered")
	}
}
