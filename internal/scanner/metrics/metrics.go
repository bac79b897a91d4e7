package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for request classification.
type Metrics struct {
	Classifications *prometheus.CounterVec
	Challenges      *prometheus.CounterVec
}

// New creates and registers all scanner metrics.
func New() *Metrics {
	return &Metrics{
		Classifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_scanner_classifications_total",
			Help: "Request classifications by class",
		}, []string{"class"}),
		Challenges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_scanner_challenges_total",
			Help: "Challenges issued by kind",
		}, []string{"kind"}),
	}
}
