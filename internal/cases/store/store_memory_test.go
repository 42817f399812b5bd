package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"condoflow/internal/cases"
	"condoflow/internal/cases/store"
	"condoflow/internal/quota"
	id "condoflow/pkg/domain"
	"condoflow/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite

	store   *store.MemoryStore
	condoID id.CondominiumID
	now     time.Time
	spec    quota.Spec
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = store.NewMemory()
	s.condoID = id.CondominiumID(uuid.New())
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.spec = quota.Spec{
		Type:        cases.TypeWarning,
		Limit:       2,
		PeriodStart: s.now.AddDate(0, 0, -10),
		PeriodEnd:   s.now.AddDate(0, 0, 20),
	}
}

func (s *MemoryStoreSuite) newCase() *cases.Case {
	return &cases.Case{
		ID:            id.NewCaseID(),
		CondominiumID: s.condoID,
		Type:          cases.TypeWarning,
		Status:        cases.StatusRegistered,
		Title:         "noise after hours",
		OccurredAt:    s.now.Add(-time.Hour),
		CreatedAt:     s.now,
	}
}

func (s *MemoryStoreSuite) mustCreate() *cases.Case {
	c := s.newCase()
	_, err := s.store.CreateCaseWithinQuota(context.Background(), c, s.spec)
	s.Require().NoError(err)
	return c
}

func (s *MemoryStoreSuite) TestCreateStopsAtLimit() {
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.store.CreateCaseWithinQuota(ctx, s.newCase(), s.spec)
		s.Require().NoError(err)
	}

	used, err := s.store.CreateCaseWithinQuota(ctx, s.newCase(), s.spec)
	s.Require().ErrorIs(err, sentinel.ErrQuotaExceeded)
	s.Equal(2, used)
}

func (s *MemoryStoreSuite) TestCreateCountsRegisteredCasesAgainstAdmission() {
	ctx := context.Background()
	spec := s.spec
	spec.Limit = 1

	// The first case is still only registered, yet it holds the slot.
	_, err := s.store.CreateCaseWithinQuota(ctx, s.newCase(), spec)
	s.Require().NoError(err)

	_, err = s.store.CreateCaseWithinQuota(ctx, s.newCase(), spec)
	s.ErrorIs(err, sentinel.ErrQuotaExceeded)
}

func (s *MemoryStoreSuite) TestCreateIgnoresOtherPeriods() {
	ctx := context.Background()
	spec := s.spec
	spec.Limit = 1

	old := s.newCase()
	old.CreatedAt = spec.PeriodStart.AddDate(0, -2, 0)
	_, err := s.store.CreateCaseWithinQuota(ctx, old, quota.Spec{
		Type:        cases.TypeWarning,
		Limit:       1,
		PeriodStart: old.CreatedAt.AddDate(0, 0, -1),
		PeriodEnd:   old.CreatedAt.AddDate(0, 0, 1),
	})
	s.Require().NoError(err)

	// A case created in an earlier period does not consume this period's slot.
	_, err = s.store.CreateCaseWithinQuota(ctx, s.newCase(), spec)
	s.NoError(err)
}

func (s *MemoryStoreSuite) TestDefenseLifecycle() {
	ctx := context.Background()
	c := s.mustCreate()

	d := &cases.Defense{
		ID:          id.NewDefenseID(),
		CaseID:      c.ID,
		ResidentID:  id.ResidentID(uuid.New()),
		Content:     "the music was from another unit",
		SubmittedAt: s.now,
		Deadline:    s.now.AddDate(0, 0, 7),
	}
	s.Require().NoError(s.store.InsertDefenseAtomic(ctx, d))

	stored, err := s.store.GetCase(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(cases.StatusInDefense, stored.Status)

	// Second defense is a conflict.
	second := *d
	second.ID = id.NewDefenseID()
	s.ErrorIs(s.store.InsertDefenseAtomic(ctx, &second), sentinel.ErrConflict)
}

func (s *MemoryStoreSuite) TestDefenseRejectedAfterDecision() {
	ctx := context.Background()
	c := s.mustCreate()

	s.Require().NoError(s.store.InsertDecisionAtomic(ctx, &cases.Decision{
		ID:            id.NewDecisionID(),
		CaseID:        c.ID,
		Outcome:       cases.OutcomeArchived,
		Justification: "insufficient evidence",
		DecidedAt:     s.now,
		DecidedBy:     id.ActorID(uuid.New()),
	}))

	err := s.store.InsertDefenseAtomic(ctx, &cases.Defense{
		ID:         id.NewDefenseID(),
		CaseID:     c.ID,
		ResidentID: id.ResidentID(uuid.New()),
		Content:    "late rebuttal",
	})
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *MemoryStoreSuite) TestDecisionClosesCaseOnce() {
	ctx := context.Background()
	c := s.mustCreate()

	first := &cases.Decision{
		ID:            id.NewDecisionID(),
		CaseID:        c.ID,
		Outcome:       cases.OutcomeWarned,
		Justification: "first offense",
		DecidedAt:     s.now,
		DecidedBy:     id.ActorID(uuid.New()),
	}
	s.Require().NoError(s.store.InsertDecisionAtomic(ctx, first))

	stored, err := s.store.GetCase(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(cases.StatusWarned, stored.Status)
	s.True(stored.Status.Terminal())

	second := *first
	second.ID = id.NewDecisionID()
	second.Outcome = cases.OutcomeFined
	s.ErrorIs(s.store.InsertDecisionAtomic(ctx, &second), sentinel.ErrInvalidState)

	// The stored decision is still the first one.
	got, err := s.store.GetDecision(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, got.ID)
}

func (s *MemoryStoreSuite) TestRecordSentTransitionsOnce() {
	ctx := context.Background()
	c := s.mustCreate()

	first := &cases.NotificationEvent{
		ID:      id.NewNotificationEventID(),
		CaseID:  c.ID,
		Channel: "email",
		SentAt:  s.now,
	}
	s.Require().NoError(s.store.RecordSentAtomic(ctx, first))

	stored, err := s.store.GetCase(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(cases.StatusNotified, stored.Status)

	// A repeat send appends an event without touching the status.
	second := &cases.NotificationEvent{
		ID:      id.NewNotificationEventID(),
		CaseID:  c.ID,
		Channel: "letter",
		SentAt:  s.now.Add(time.Hour),
	}
	s.Require().NoError(s.store.RecordSentAtomic(ctx, second))

	stored, err = s.store.GetCase(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(cases.StatusNotified, stored.Status)

	events, err := s.store.ListNotificationEvents(ctx, c.ID)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *MemoryStoreSuite) TestTrackingTimestampsWriteOnce() {
	ctx := context.Background()
	c := s.mustCreate()

	ev := &cases.NotificationEvent{
		ID:      id.NewNotificationEventID(),
		CaseID:  c.ID,
		Channel: "email",
		SentAt:  s.now,
	}
	s.Require().NoError(s.store.RecordSentAtomic(ctx, ev))

	firstAt := s.now.Add(time.Minute)
	s.Require().NoError(s.store.SetDeliveredAt(ctx, ev.ID, firstAt))

	// Replays keep the original timestamp.
	s.Require().NoError(s.store.SetDeliveredAt(ctx, ev.ID, firstAt.Add(time.Hour)))

	stored, err := s.store.GetNotificationEvent(ctx, ev.ID)
	s.Require().NoError(err)
	require.NotNil(s.T(), stored.DeliveredAt)
	s.True(stored.DeliveredAt.Equal(firstAt))
	s.Nil(stored.ReadAt)
	s.Nil(stored.AcknowledgedAt)
}

func (s *MemoryStoreSuite) TestEvidenceRequiresCase() {
	ctx := context.Background()

	err := s.store.AppendEvidence(ctx, &cases.Evidence{
		ID:         id.NewEvidenceID(),
		CaseID:     id.NewCaseID(),
		FileURL:    "https://files.example.com/a.jpg",
		FileType:   "image/jpeg",
		AttachedAt: s.now,
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestCopyOnRead() {
	ctx := context.Background()
	c := s.mustCreate()

	got, err := s.store.GetCase(ctx, c.ID)
	s.Require().NoError(err)
	got.Title = "mutated"

	again, err := s.store.GetCase(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("noise after hours", again.Title)
}
