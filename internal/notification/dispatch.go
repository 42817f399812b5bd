package notification

import (
	"context"
	"log/slog"

	"condoflow/internal/cases"
	"condoflow/internal/directory"
)

// Dispatcher hands a recorded notification to the delivery channel. Actual
// transport (mail provider, SMS gateway) lives outside this module; the
// tracker only records that a send happened and forwards the intent.
type Dispatcher interface {
	Dispatch(ctx context.Context, contact *directory.Contact, c *cases.Case, ev *cases.NotificationEvent) error
}

// LogDispatcher records the dispatch intent in the log. Used when no delivery
// integration is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, contact *directory.Contact, c *cases.Case, ev *cases.NotificationEvent) error {
	d.logger.InfoContext(ctx, "notification dispatched",
		"case_id", c.ID,
		"event_id", ev.ID,
		"channel", ev.Channel,
		"resident", contact.Name,
	)
	return nil
}
