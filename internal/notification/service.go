// Package notification tracks the notification lifecycle on a case: the send
// itself plus the delivered/read/acknowledged timestamps reported back by the
// delivery channel. All tracking updates are idempotent; the channel may
// report the same stage any number of times.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"condoflow/internal/audit"
	"condoflow/internal/cases"
	"condoflow/internal/directory"
	notifmetrics "condoflow/internal/notification/metrics"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/sentinel"
	"condoflow/pkg/requestcontext"
)

// Store is the persistence surface for notification events. RecordSentAtomic
// also performs the registered → notified transition.
type Store interface {
	RecordSentAtomic(ctx context.Context, ev *cases.NotificationEvent) error
	GetNotificationEvent(ctx context.Context, eventID id.NotificationEventID) (*cases.NotificationEvent, error)
	ListNotificationEvents(ctx context.Context, caseID id.CaseID) ([]*cases.NotificationEvent, error)
	SetDeliveredAt(ctx context.Context, eventID id.NotificationEventID, at time.Time) error
	SetReadAt(ctx context.Context, eventID id.NotificationEventID, at time.Time) error
	SetAcknowledgedAt(ctx context.Context, eventID id.NotificationEventID, at time.Time) error
	GetCase(ctx context.Context, caseID id.CaseID) (*cases.Case, error)
}

// dispatchTimeout bounds the fire-and-forget channel handoff.
const dispatchTimeout = 10 * time.Second

type Service struct {
	store      Store
	directory  directory.Resolver
	dispatcher Dispatcher
	auditor    *audit.Recorder
	metrics    *notifmetrics.Metrics
	logger     *slog.Logger
}

func New(store Store, resolver directory.Resolver, dispatcher Dispatcher, auditor *audit.Recorder, metrics *notifmetrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		directory:  resolver,
		dispatcher: dispatcher,
		auditor:    auditor,
		metrics:    metrics,
		logger:     logger,
	}
}

// RecordSent appends a notification event and moves a registered case to
// notified. Repeat sends on an already-notified case only append the event.
func (s *Service) RecordSent(ctx context.Context, caseID id.CaseID, channel string) (*cases.NotificationEvent, error) {
	if role := requestcontext.Role(ctx); role != requestcontext.RoleManager {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers may record notifications")
	}
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "channel is required")
	}

	ev := &cases.NotificationEvent{
		ID:      id.NewNotificationEventID(),
		CaseID:  caseID,
		Channel: channel,
		SentAt:  requestcontext.Now(ctx),
	}

	if err := s.store.RecordSentAtomic(ctx, ev); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		s.logger.ErrorContext(ctx, "failed to record notification",
			"case_id", caseID,
			"channel", channel,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record notification")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action: audit.ActionNotificationSent,
		CaseID: caseID,
		Reason: channel,
	})
	s.metrics.IncrementSent(channel)

	s.dispatch(ctx, ev)

	return ev, nil
}

// dispatch forwards the send intent to the delivery channel off the request
// path. Delivery failures are observed later through the tracking callbacks,
// so a failed handoff only logs.
func (s *Service) dispatch(ctx context.Context, ev *cases.NotificationEvent) {
	c, err := s.store.GetCase(ctx, ev.CaseID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping notification dispatch, case reload failed",
			"case_id", ev.CaseID,
			"error", err,
		)
		return
	}
	if c.ResidentID == nil {
		return
	}

	contact, err := s.directory.ResidentContact(ctx, *c.ResidentID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping notification dispatch, contact unresolved",
			"case_id", ev.CaseID,
			"resident_id", c.ResidentID,
			"error", err,
		)
		return
	}

	go func() {
		dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
		defer cancel()

		if err := s.dispatcher.Dispatch(dispatchCtx, contact, c, ev); err != nil {
			s.logger.WarnContext(dispatchCtx, "notification dispatch failed",
				"case_id", ev.CaseID,
				"event_id", ev.ID,
				"error", err,
			)
		}
	}()
}

// TrackingStage names a lifecycle timestamp on a notification event.
type TrackingStage string

const (
	StageDelivered    TrackingStage = "delivered"
	StageRead         TrackingStage = "read"
	StageAcknowledged TrackingStage = "acknowledged"
)

// Track records a tracking timestamp for the event. The delivery channel
// reports when the stage actually happened; a zero `at` falls back to the
// request time for callbacks that carry no timestamp. First write wins; later
// reports of the same stage leave the stored timestamp untouched.
func (s *Service) Track(ctx context.Context, eventID id.NotificationEventID, stage TrackingStage, at time.Time) (*cases.NotificationEvent, error) {
	if at.IsZero() {
		at = requestcontext.Now(ctx)
	}

	var err error
	var action audit.Action
	switch stage {
	case StageDelivered:
		err = s.store.SetDeliveredAt(ctx, eventID, at)
		action = audit.ActionNotificationDelivered
	case StageRead:
		err = s.store.SetReadAt(ctx, eventID, at)
		action = audit.ActionNotificationRead
	case StageAcknowledged:
		err = s.store.SetAcknowledgedAt(ctx, eventID, at)
		action = audit.ActionNotificationAcknowledged
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown tracking stage")
	}

	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "notification event not found")
		}
		s.logger.ErrorContext(ctx, "failed to record tracking update",
			"event_id", eventID,
			"stage", stage,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record tracking update")
	}

	ev, err := s.store.GetNotificationEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload notification event")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action: action,
		CaseID: ev.CaseID,
	})
	s.metrics.IncrementTracking(string(stage))

	return ev, nil
}

// List returns the case's notification events in send order.
func (s *Service) List(ctx context.Context, caseID id.CaseID) ([]*cases.NotificationEvent, error) {
	events, err := s.store.ListNotificationEvents(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notification events")
	}
	return events, nil
}
