package audit

import (
	"context"
	"log/slog"
)

// Sink receives a copy of every persisted event, typically a Kafka topic
// consumed by external compliance tooling. Delivery is best effort.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker consumes audit events from the publisher inbox and persists them.
// Store failures are logged, never fatal: the trail degrades before the
// engine does.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
			"error", err,
		)
		return
	}
	persistedEvents.WithLabelValues(string(event.Category)).Inc()

	if w.sink != nil {
		if err := w.sink.Publish(ctx, event); err != nil {
			sinkFailures.Inc()
			w.logger.WarnContext(ctx, "audit sink publish failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}
