package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veritas_audit_events_dropped_total",
		Help: "Audit events dropped because the inbox was full",
	})

	persistedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veritas_audit_events_persisted_total",
		Help: "Audit events persisted to the store, by category",
	}, []string{"category"})

	sinkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veritas_audit_sink_failures_total",
		Help: "Failed deliveries to the external audit sink",
	})
)
