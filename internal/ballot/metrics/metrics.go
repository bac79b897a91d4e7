package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the ballot box.
type Metrics struct {
	Casts          *prometheus.CounterVec
	CastDurationMs prometheus.Histogram
	Resweeps       prometheus.Counter
}

// New creates and registers all ballot metrics.
func New() *Metrics {
	return &Metrics{
		Casts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_ballot_casts_total",
			Help: "Ballot casts by outcome",
		}, []string{"outcome"}),
		CastDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritas_ballot_cast_duration_ms",
			Help:    "Latency of the full cast path in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
		Resweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_ballot_resweeps_total",
			Help: "Completed decay resweeps",
		}),
	}
}
