package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the identity service.
type Metrics struct {
	Registrations      prometheus.Counter
	TierChanges        *prometheus.CounterVec
	DuplicateDocuments prometheus.Counter
}

// New creates and registers all identity metrics.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_identity_registrations_total",
			Help: "Citizens registered",
		}),
		TierChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_identity_tier_changes_total",
			Help: "Tier transitions by new tier",
		}, []string{"to"}),
		DuplicateDocuments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_identity_duplicate_documents_total",
			Help: "Verification attempts that presented an already-claimed document",
		}),
	}
}
