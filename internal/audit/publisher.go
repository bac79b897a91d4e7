package audit

import (
	"context"
	"log/slog"
	"time"

	"veritas/pkg/requestcontext"
)

// Publisher hands events to the background worker. Emission never blocks
// the caller: a full inbox drops the event and counts the drop, because
// audit must not stall vote acceptance.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher with the given inbox capacity.
func NewPublisher(capacity int, logger *slog.Logger) *Publisher {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Publisher{
		inbox:  make(chan Event, capacity),
		logger: logger,
	}
}

// Emit queues an event for persistence. A zero timestamp is stamped with
// the request-scoped time.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		droppedEvents.Inc()
		p.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"action", event.Action,
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
		)
	}
}

// Events exposes the inbox for the worker.
func (p *Publisher) Events() <-chan Event { return p.inbox }

// Drain waits until the inbox empties or the timeout elapses. Used during
// shutdown so late events still reach the store.
func (p *Publisher) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for len(p.inbox) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}
