package evidence_test

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
	"condoflow/internal/evidence"
	"condoflow/internal/quota"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/requestcontext"
)

type EvidenceServiceSuite struct {
	suite.Suite

	store *store.MemoryStore
	svc   *evidence.Service

	now time.Time
}

func TestEvidenceServiceSuite(t *testing.T) {
	suite.Run(t, new(EvidenceServiceSuite))
}

func (s *EvidenceServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.store = store.NewMemory()
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	auditor := audit.NewRecorder(64, logger)
	s.svc = evidence.New(s.store, auditor, logger)
}

func (s *EvidenceServiceSuite) managerCtx() context.Context {
	ctx := requestcontext.WithActor(context.Background(), id.ActorID(uuid.New()), requestcontext.RoleManager)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *EvidenceServiceSuite) seedCase() *cases.Case {
	c := &cases.Case{
		ID:            id.NewCaseID(),
		CondominiumID: id.CondominiumID(uuid.New()),
		Type:          cases.TypeWarning,
		Status:        cases.StatusRegistered,
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

func (s *EvidenceServiceSuite) TestAttach() {
	c := s.seedCase()

	ev, err := s.svc.Attach(s.managerCtx(), evidence.AttachInput{
		CaseID:      c.ID,
		FileURL:     "  https://files.example.com/a.jpg  ",
		FileType:    "image/jpeg",
		Description: "hallway camera still",
	})
	s.Require().NoError(err)
	s.Equal("https://files.example.com/a.jpg", ev.FileURL)
	s.Equal(s.now, ev.AttachedAt)

	items, err := s.svc.List(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(ev.ID, items[0].ID)
}

func (s *EvidenceServiceSuite) TestAttachKeepsOrder() {
	c := s.seedCase()
	ctx := s.managerCtx()

	first, err := s.svc.Attach(ctx, evidence.AttachInput{CaseID: c.ID, FileURL: "https://files.example.com/1.pdf", FileType: "application/pdf"})
	s.Require().NoError(err)
	second, err := s.svc.Attach(ctx, evidence.AttachInput{CaseID: c.ID, FileURL: "https://files.example.com/2.pdf", FileType: "application/pdf"})
	s.Require().NoError(err)

	items, err := s.svc.List(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal(first.ID, items[0].ID)
	s.Equal(second.ID, items[1].ID)
}

func (s *EvidenceServiceSuite) TestAttachAfterDecision() {
	c := s.seedCase()
	s.Require().NoError(s.store.InsertDecisionAtomic(context.Background(), &cases.Decision{
		ID:            id.NewDecisionID(),
		CaseID:        c.ID,
		Outcome:       cases.OutcomeWarned,
		Justification: "first offense",
		DecidedAt:     s.now,
		DecidedBy:     id.ActorID(uuid.New()),
	}))

	// The ledger stays open after the case closes.
	_, err := s.svc.Attach(s.managerCtx(), evidence.AttachInput{
		CaseID:   c.ID,
		FileURL:  "https://files.example.com/late.jpg",
		FileType: "image/jpeg",
	})
	s.NoError(err)
}

func (s *EvidenceServiceSuite) TestAttachValidation() {
	c := s.seedCase()

	_, err := s.svc.Attach(s.managerCtx(), evidence.AttachInput{CaseID: c.ID, FileType: "image/jpeg"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Attach(s.managerCtx(), evidence.AttachInput{CaseID: c.ID, FileURL: "https://files.example.com/a.jpg"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *EvidenceServiceSuite) TestAttachRequiresManagerRole() {
	c := s.seedCase()
	ctx := requestcontext.WithActor(context.Background(), id.ActorID(uuid.New()), requestcontext.RoleResident)

	_, err := s.svc.Attach(ctx, evidence.AttachInput{CaseID: c.ID, FileURL: "https://files.example.com/a.jpg", FileType: "image/jpeg"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *EvidenceServiceSuite) TestAttachUnknownCase() {
	_, err := s.svc.Attach(s.managerCtx(), evidence.AttachInput{
		CaseID:   id.NewCaseID(),
		FileURL:  "https://files.example.com/a.jpg",
		FileType: "image/jpeg",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
