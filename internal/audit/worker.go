package audit

import (
	"context"
	"log/slog"
)

// Worker drains the recorder's inbox into the store and the optional sink.
// Store failures are logged and the event is dropped.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"action", event.Action,
					"case_id", event.CaseID,
					"error", err,
				)
				continue
			}
			if w.sink == nil {
				continue
			}
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "failed to publish audit event",
					"action", event.Action,
					"case_id", event.CaseID,
					"error", err,
				)
			}
		}
	}
}
