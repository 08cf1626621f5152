package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

func newRegistrationCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventfair_registrations_total",
		Help: "Register and unregister calls by outcome",
	}, []string{"outcome"})
}

// Counter of Register/Unregister outcomes, fed by the service.
func RegistrationObserver() func(outcome string) {
	outcomes := register(newRegistrationCounter(), "eventfair_registrations_total")

	return func(outcome string) {
		outcomes.WithLabelValues(outcome).Inc()
	}
}
