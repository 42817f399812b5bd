package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"condoflow/internal/audit"
	"condoflow/internal/billing"
	billingservice "condoflow/internal/billing/service"
	billingstore "condoflow/internal/billing/store"
	"condoflow/internal/cases"
	"condoflow/internal/cases/service"
	"condoflow/internal/cases/store"
	"condoflow/internal/quota"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/requestcontext"
)

type CaseServiceSuite struct {
	suite.Suite

	store   *store.MemoryStore
	billing *billingstore.MemoryStore
	svc     *service.Service

	condoID id.CondominiumID
	now     time.Time
}

func TestCaseServiceSuite(t *testing.T) {
	suite.Run(t, new(CaseServiceSuite))
}

func (s *CaseServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.store = store.NewMemory()
	s.billing = billingstore.NewMemory()
	s.condoID = id.CondominiumID(uuid.New())
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	billingSvc := billingservice.New(s.billing, logger)
	quotaSvc, err := quota.New(billingSvc, s.store, logger)
	s.Require().NoError(err)

	auditor := audit.NewRecorder(64, logger)
	s.svc = service.New(s.store, quotaSvc, auditor, nil, logger)
}

func (s *CaseServiceSuite) seedPeriod(warnings, notices, fines int) {
	s.billing.Seed(billing.SubscriptionPeriod{
		CondominiumID:      s.condoID,
		PeriodStart:        s.now.AddDate(0, 0, -10),
		PeriodEnd:          s.now.AddDate(0, 0, 20),
		WarningsLimit:      warnings,
		NotificationsLimit: notices,
		FinesLimit:         fines,
	})
}

func (s *CaseServiceSuite) managerCtx() context.Context {
	ctx := requestcontext.WithActor(context.Background(), id.ActorID(uuid.New()), requestcontext.RoleManager)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *CaseServiceSuite) input(caseType cases.CaseType) service.RegisterInput {
	return service.RegisterInput{
		CondominiumID: s.condoID,
		Type:          caseType,
		Title:         "noise after hours",
		Description:   "loud music reported by unit 12",
		OccurredAt:    s.now.Add(-2 * time.Hour),
	}
}

func (s *CaseServiceSuite) TestRegisterUnderLimit() {
	s.seedPeriod(5, 5, 5)

	created, err := s.svc.Register(s.managerCtx(), s.input(cases.TypeWarning))
	s.Require().NoError(err)

	s.Equal(cases.StatusRegistered, created.Status)
	s.Equal(s.now, created.CreatedAt)
	s.False(created.ID.IsNil())

	stored, err := s.store.GetCase(context.Background(), created.ID)
	s.Require().NoError(err)
	s.Equal(created.Title, stored.Title)
}

func (s *CaseServiceSuite) TestRegisterQuotaExhausted() {
	s.seedPeriod(1, 5, 5)
	ctx := s.managerCtx()

	_, err := s.svc.Register(ctx, s.input(cases.TypeWarning))
	s.Require().NoError(err)

	_, err = s.svc.Register(ctx, s.input(cases.TypeWarning))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))

	details := dErrors.DetailsOf(err)
	s.Equal("warning", details["type"])
	s.Equal(1, details["limit"])
	s.Equal(1, details["used"])
}

func (s *CaseServiceSuite) TestRegisterLimitsAreIndependentPerType() {
	s.seedPeriod(1, 1, 1)
	ctx := s.managerCtx()

	_, err := s.svc.Register(ctx, s.input(cases.TypeWarning))
	s.Require().NoError(err)

	// The warning limit being spent must not affect fines.
	_, err = s.svc.Register(ctx, s.input(cases.TypeFine))
	s.Require().NoError(err)
}

func (s *CaseServiceSuite) TestRegisterUnlimited() {
	s.seedPeriod(billing.Unlimited, 5, 5)
	ctx := s.managerCtx()

	for i := 0; i < 10; i++ {
		_, err := s.svc.Register(ctx, s.input(cases.TypeWarning))
		s.Require().NoError(err)
	}
}

func (s *CaseServiceSuite) TestRegisterConcurrentUnderLimitOne() {
	s.seedPeriod(5, 1, 5)
	ctx := s.managerCtx()

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Register(ctx, s.input(cases.TypeNotice))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, quotaDenials := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case dErrors.HasCode(err, dErrors.CodeQuotaExceeded):
			quotaDenials++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, successes, "exactly one registration should win the slot")
	s.Equal(attempts-1, quotaDenials)
}

func (s *CaseServiceSuite) TestRegisterRequiresManagerRole() {
	s.seedPeriod(5, 5, 5)
	ctx := requestcontext.WithActor(context.Background(), id.ActorID(uuid.New()), requestcontext.RoleResident)

	_, err := s.svc.Register(ctx, s.input(cases.TypeWarning))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *CaseServiceSuite) TestRegisterNoActivePeriod() {
	// No period seeded.
	_, err := s.svc.Register(s.managerCtx(), s.input(cases.TypeWarning))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CaseServiceSuite) TestRegisterValidation() {
	s.seedPeriod(5, 5, 5)

	in := s.input(cases.TypeWarning)
	in.Title = "   "
	_, err := s.svc.Register(s.managerCtx(), in)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	in = s.input(cases.TypeWarning)
	in.OccurredAt = time.Time{}
	_, err = s.svc.Register(s.managerCtx(), in)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CaseServiceSuite) TestGetIncludesDecisionOnceClosed() {
	s.seedPeriod(5, 5, 5)
	ctx := s.managerCtx()

	created, err := s.svc.Register(ctx, s.input(cases.TypeFine))
	s.Require().NoError(err)

	detail, err := s.svc.Get(ctx, created.ID)
	s.Require().NoError(err)
	s.Nil(detail.Decision)

	decision := &cases.Decision{
		ID:            id.NewDecisionID(),
		CaseID:        created.ID,
		Outcome:       cases.OutcomeFined,
		Justification: "repeated infraction",
		DecidedAt:     s.now.Add(time.Hour),
		DecidedBy:     id.ActorID(uuid.New()),
	}
	s.Require().NoError(s.store.InsertDecisionAtomic(ctx, decision))

	detail, err = s.svc.Get(ctx, created.ID)
	s.Require().NoError(err)
	s.Require().NotNil(detail.Decision)
	s.Equal(cases.OutcomeFined, detail.Decision.Outcome)
	s.Equal(cases.StatusFined, detail.Case.Status)
	s.Equal("fined", detail.Case.Status.DisplayLabel())
}

func (s *CaseServiceSuite) TestGetNotFound() {
	_, err := s.svc.Get(context.Background(), id.NewCaseID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CaseServiceSuite) TestQuotaReportCountsOnlyCountedStatuses() {
	s.seedPeriod(5, 5, 5)
	ctx := s.managerCtx()

	first, err := s.svc.Register(ctx, s.input(cases.TypeWarning))
	s.Require().NoError(err)
	_, err = s.svc.Register(ctx, s.input(cases.TypeWarning))
	s.Require().NoError(err)

	// Registered cases consume the admission slot but stay out of the report.
	report, err := s.svc.QuotaReport(ctx, s.condoID)
	s.Require().NoError(err)
	s.Equal(0, usageFor(report, cases.TypeWarning).Used)

	// Notifying the first case moves it into the counted set.
	s.Require().NoError(s.store.RecordSentAtomic(ctx, &cases.NotificationEvent{
		ID:      id.NewNotificationEventID(),
		CaseID:  first.ID,
		Channel: "email",
		SentAt:  s.now,
	}))

	report, err = s.svc.QuotaReport(ctx, s.condoID)
	s.Require().NoError(err)
	s.Equal(1, usageFor(report, cases.TypeWarning).Used)
	s.Equal(5, usageFor(report, cases.TypeWarning).Limit)
}

func usageFor(report *quota.Report, caseType cases.CaseType) quota.TypeUsage {
	for _, usage := range report.Usage {
		if usage.Type == caseType {
			return usage
		}
	}
	return quota.TypeUsage{}
}
