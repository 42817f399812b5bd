package audit

import (
	"context"
	"log/slog"

	id "condoflow/pkg/domain"
	"condoflow/pkg/requestcontext"
)

// Store is the append-only persistence surface.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCase(ctx context.Context, caseID id.CaseID) ([]Event, error)
}

// Recorder is what domain services hold. Emit never blocks the request path:
// events go onto a buffered channel and a full buffer drops the event with a
// warning rather than stalling the caller.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewRecorder(buffer int, logger *slog.Logger) *Recorder {
	return &Recorder{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the channel for the draining worker.
func (r *Recorder) Inbox() <-chan Event { return r.inbox }

// Emit enriches the event from the request context and queues it.
func (r *Recorder) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.DeviceInfo(ctx)
	}
	if event.ActorID == "" {
		if actorID := requestcontext.ActorID(ctx); !actorID.IsNil() {
			event.ActorID = actorID.String()
		}
	}
	if event.ActorRole == "" {
		event.ActorRole = string(requestcontext.Role(ctx))
	}

	select {
	case r.inbox <- event:
	default:
		r.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"case_id", event.CaseID,
		)
	}
}
