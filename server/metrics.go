package server

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	registered *prometheus.CounterVec
	failures   *prometheus.CounterVec
	active     *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		registered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appleble",
			Name:      "advertisements_registered_total",
			Help:      "Advertisements handed to the transport.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appleble",
			Name:      "advertisement_failures_total",
			Help:      "Registrations rejected by validation or the transport.",
		}, []string{"kind"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "appleble",
			Name:      "advertisements_active",
			Help:      "Broadcasts currently registered through the API.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.registered, m.failures, m.active)
	return m
}
