package posture

import (
	"context"
	"log/slog"
	"time"

	"veritas/internal/audit"
	"veritas/internal/posture/metrics"
	dErrors "veritas/pkg/domain-errors"
)

// Anomaly-rate thresholds used by EvaluateThreat to recommend a posture.
const (
	yellowAnomalyRate = 0.05
	redAnomalyRate    = 0.15
)

// AuditPublisher is the slice of the audit publisher the controller needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Controller reads and switches the global posture. Reads never fail:
// any store problem degrades to the fail-safe posture.
type Controller struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor AuditPublisher
}

func NewController(store Store, logger *slog.Logger, m *metrics.Metrics, auditor AuditPublisher) *Controller {
	return &Controller{store: store, logger: logger, metrics: m, auditor: auditor}
}

// Current returns the live posture. With no store configured, or on any
// store error, it returns the fail-safe posture and counts the degraded
// read. It never blocks beyond the store's own bounded timeout and never
// returns an error.
func (c *Controller) Current(ctx context.Context) Posture {
	if c.store == nil {
		c.metrics.DegradedReads.Inc()
		return FailSafe
	}

	start := time.Now()
	p, err := c.store.Get(ctx)
	c.metrics.ReadDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		c.metrics.DegradedReads.Inc()
		c.logger.WarnContext(ctx, "posture read degraded to fail-safe", "error", err)
		return FailSafe
	}
	return p
}

// Switch commits an operator posture change and propagates it through the
// shared store. Only operators call this; automated signals recommend via
// EvaluateThreat but never commit.
func (c *Controller) Switch(ctx context.Context, to Posture, actor, reason string) (*Transition, error) {
	if !to.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid posture")
	}
	if c.store == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "posture store not configured")
	}

	from := c.Current(ctx)
	if err := c.store.Set(ctx, to); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "posture switch failed", err)
	}

	c.metrics.Switches.WithLabelValues(to.String()).Inc()
	c.logger.InfoContext(ctx, "posture switched",
		"from", from,
		"to", to,
		"actor", actor,
		"reason", reason,
	)
	c.auditor.Emit(ctx, audit.Event{
		Category:   audit.CategorySecurity,
		Actor:      actor,
		Action:     audit.ActionPostureChanged,
		EntityType: "SYSTEM",
		EntityID:   "GLOBAL",
		Reason:     reason,
		Detail: map[string]string{
			"from": from.String(),
			"to":   to.String(),
		},
	})

	return &Transition{From: from, To: to, Actor: actor, Reason: reason}, nil
}

// EvaluateThreat recommends a posture from the suspicious-traffic rate over
// a recent window. The recommendation is advisory; committing it remains a
// discrete operator action.
func (c *Controller) EvaluateThreat(total, suspicious int) Posture {
	if total <= 0 {
		return Green
	}
	rate := float64(suspicious) / float64(total)
	switch {
	case rate >= redAnomalyRate:
		return Red
	case rate >= yellowAnomalyRate:
		return Yellow
	default:
		return Green
	}
}
