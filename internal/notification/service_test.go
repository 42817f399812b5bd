package notification_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"condoflow/internal/audit"
	"condoflow/internal/cases"
	"condoflow/internal/cases/store"
	"condoflow/internal/directory"
	"condoflow/internal/notification"
	"condoflow/internal/quota"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/requestcontext"
)

// recordingDispatcher signals on a channel so tests can wait for the
// asynchronous channel handoff.
type recordingDispatcher struct {
	calls chan *cases.NotificationEvent
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{calls: make(chan *cases.NotificationEvent, 4)}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ *directory.Contact, _ *cases.Case, ev *cases.NotificationEvent) error {
	d.calls <- ev
	return nil
}

type NotificationServiceSuite struct {
	suite.Suite

	store      *store.MemoryStore
	resolver   *directory.MemoryResolver
	dispatcher *recordingDispatcher
	svc        *notification.Service

	residentID id.ResidentID
	now        time.Time
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.store = store.NewMemory()
	s.resolver = directory.NewMemoryResolver()
	s.dispatcher = newRecordingDispatcher()
	s.residentID = id.ResidentID(uuid.New())
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	s.resolver.Seed(directory.Contact{
		ResidentID: s.residentID,
		Name:       "Ana Souza",
		Email:      "ana@example.com",
	})

	auditor := audit.NewRecorder(64, logger)
	s.svc = notification.New(s.store, s.resolver, s.dispatcher, auditor, nil, logger)
}

func (s *NotificationServiceSuite) managerCtx() context.Context {
	ctx := requestcontext.WithActor(context.Background(), id.ActorID(uuid.New()), requestcontext.RoleManager)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *NotificationServiceSuite) seedCase() *cases.Case {
	resident := s.residentID
	c := &cases.Case{
		ID:            id.NewCaseID(),
		CondominiumID: id.CondominiumID(uuid.New()),
		Type:          cases.TypeWarning,
		Status:        cases.StatusRegistered,
		ResidentID:    &resident,
		Title:         "noise after hours",
		OccurredAt:    s.now.Add(-time.Hour),
		CreatedAt:     s.now,
	}
	_, err := s.store.CreateCaseWithinQuota(context.Background(), c, quota.Spec{
		Type:        c.Type,
		Limit:       10,
		PeriodStart: s.now.AddDate(0, 0, -10),
		PeriodEnd:   s.now.AddDate(0, 0, 20),
	})
	s.Require().NoError(err)
	return c
}

func (s *NotificationServiceSuite) waitForDispatch() *cases.NotificationEvent {
	select {
	case ev := <-s.dispatcher.calls:
		return ev
	case <-time.After(2 * time.Second):
		s.FailNow("dispatch never happened")
		return nil
	}
}

func (s *NotificationServiceSuite) TestRecordSentTransitionsCase() {
	c := s.seedCase()

	ev, err := s.svc.RecordSent(s.managerCtx(), c.ID, " Email ")
	s.Require().NoError(err)
	s.Equal("email", ev.Channel)
	s.Equal(s.now, ev.SentAt)

	stored, err := s.store.GetCase(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Equal(cases.StatusNotified, stored.Status)

	dispatched := s.waitForDispatch()
	s.Equal(ev.ID, dispatched.ID)
}

func (s *NotificationServiceSuite) TestRecordSentRepeatAppendsOnly() {
	c := s.seedCase()
	ctx := s.managerCtx()

	_, err := s.svc.RecordSent(ctx, c.ID, "email")
	s.Require().NoError(err)
	_, err = s.svc.RecordSent(ctx, c.ID, "letter")
	s.Require().NoError(err)

	stored, err := s.store.GetCase(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Equal(cases.StatusNotified, stored.Status)

	events, err := s.svc.List(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *NotificationServiceSuite) TestRecordSentRequiresManagerRole() {
	c := s.seedCase()
	ctx := requestcontext.WithActor(context.Background(), id.ActorID(uuid.New()), requestcontext.RoleResident)

	_, err := s.svc.RecordSent(ctx, c.ID, "email")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *NotificationServiceSuite) TestRecordSentValidatesChannel() {
	c := s.seedCase()

	_, err := s.svc.RecordSent(s.managerCtx(), c.ID, "   ")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *NotificationServiceSuite) TestRecordSentUnknownCase() {
	_, err := s.svc.RecordSent(s.managerCtx(), id.NewCaseID(), "email")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *NotificationServiceSuite) TestTrackStages() {
	c := s.seedCase()
	ev, err := s.svc.RecordSent(s.managerCtx(), c.ID, "email")
	s.Require().NoError(err)

	trackCtx := requestcontext.WithTime(context.Background(), s.now.Add(time.Minute))

	got, err := s.svc.Track(trackCtx, ev.ID, notification.StageDelivered, time.Time{})
	s.Require().NoError(err)
	s.Require().NotNil(got.DeliveredAt)
	s.Nil(got.ReadAt)

	got, err = s.svc.Track(trackCtx, ev.ID, notification.StageRead, time.Time{})
	s.Require().NoError(err)
	s.NotNil(got.ReadAt)

	got, err = s.svc.Track(trackCtx, ev.ID, notification.StageAcknowledged, time.Time{})
	s.Require().NoError(err)
	s.NotNil(got.AcknowledgedAt)
}

func (s *NotificationServiceSuite) TestTrackFirstWriteWins() {
	c := s.seedCase()
	ev, err := s.svc.RecordSent(s.managerCtx(), c.ID, "email")
	s.Require().NoError(err)

	firstAt := s.now.Add(time.Minute)
	got, err := s.svc.Track(requestcontext.WithTime(context.Background(), firstAt), ev.ID, notification.StageDelivered, time.Time{})
	s.Require().NoError(err)
	s.Require().NotNil(got.DeliveredAt)

	// A replayed delivery report keeps the original timestamp.
	got, err = s.svc.Track(requestcontext.WithTime(context.Background(), firstAt.Add(time.Hour)), ev.ID, notification.StageDelivered, time.Time{})
	s.Require().NoError(err)
	s.True(got.DeliveredAt.Equal(firstAt))
}

func (s *NotificationServiceSuite) TestTrackPersistsReportedTimestamp() {
	c := s.seedCase()
	ev, err := s.svc.RecordSent(s.managerCtx(), c.ID, "email")
	s.Require().NoError(err)

	// The callback arrives an hour after the delivery it reports; the stored
	// timestamp must be the channel's, not the callback arrival time.
	deliveredAt := s.now.Add(30 * time.Second)
	ctx := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))

	got, err := s.svc.Track(ctx, ev.ID, notification.StageDelivered, deliveredAt)
	s.Require().NoError(err)
	s.Require().NotNil(got.DeliveredAt)
	s.True(got.DeliveredAt.Equal(deliveredAt))
}

func (s *NotificationServiceSuite) TestTrackUnknownStage() {
	_, err := s.svc.Track(context.Background(), id.NewNotificationEventID(), notification.TrackingStage("bounced"), time.Time{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *NotificationServiceSuite) TestTrackUnknownEvent() {
	_, err := s.svc.Track(context.Background(), id.NewNotificationEventID(), notification.StageDelivered, time.Time{})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
