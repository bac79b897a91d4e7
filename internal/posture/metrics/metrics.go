package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the posture controller.
type Metrics struct {
	DegradedReads  prometheus.Counter
	Switches       *prometheus.CounterVec
	ReadDurationMs prometheus.Histogram
}

// New creates and registers all posture metrics.
func New() *Metrics {
	return &Metrics{
		DegradedReads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_posture_degraded_reads_total",
			Help: "Posture reads that fell back to YELLOW because the shared store failed",
		}),
		Switches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_posture_switches_total",
			Help: "Operator posture switches by new posture",
		}, []string{"to"}),
		ReadDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritas_posture_read_duration_ms",
			Help:    "Latency of posture reads in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
	}
}
