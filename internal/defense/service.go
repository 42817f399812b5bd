// Package defense handles the resident's one-shot written rebuttal: window
// arithmetic, eligibility, and the courtesy callout to the adjudicating
// authority once a defense lands.
package defense

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"condoflow/internal/audit"
	"condoflow/internal/cases"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/sentinel"
	"condoflow/pkg/requestcontext"
)

// Store is the persistence surface for defense rows. The insert is atomic
// with the eligibility check and the in_defense transition.
type Store interface {
	InsertDefenseAtomic(ctx context.Context, d *cases.Defense) error
	GetDefense(ctx context.Context, caseID id.CaseID) (*cases.Defense, error)
	GetCase(ctx context.Context, caseID id.CaseID) (*cases.Case, error)
}

// notifyTimeout bounds the fire-and-forget authority callout.
const notifyTimeout = 10 * time.Second

type Service struct {
	store      Store
	notifier   AuthorityNotifier
	auditor    *audit.Recorder
	logger     *slog.Logger
	windowDays int
}

func New(store Store, notifier AuthorityNotifier, auditor *audit.Recorder, windowDays int, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Service{
		store:      store,
		notifier:   notifier,
		auditor:    auditor,
		logger:     logger,
		windowDays: windowDays,
	}
}

// Deadline computes the defense deadline from the submission time.
func (s *Service) Deadline(submittedAt time.Time) time.Time {
	return submittedAt.AddDate(0, 0, s.windowDays)
}

// Submit records the resident's defense and moves the case to in_defense.
// Eligible only while the case is registered or notified and no defense
// exists yet; both checks run atomically with the insert. The authority
// callout happens off the request path and never fails the submission.
func (s *Service) Submit(ctx context.Context, caseID id.CaseID, content string) (*cases.Defense, error) {
	if role := requestcontext.Role(ctx); role != requestcontext.RoleResident {
		return nil, dErrors.New(dErrors.CodeForbidden, "only residents may submit a defense")
	}
	if strings.TrimSpace(content) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "content is required")
	}

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "acting resident is unknown")
	}

	now := requestcontext.Now(ctx)
	d := &cases.Defense{
		ID:          id.NewDefenseID(),
		CaseID:      caseID,
		ResidentID:  id.ResidentID(actorID),
		Content:     strings.TrimSpace(content),
		SubmittedAt: now,
		Deadline:    s.Deadline(now),
	}

	if err := s.store.InsertDefenseAtomic(ctx, d); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "a defense was already submitted for this case")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "case is no longer open for defense")
		}
		s.logger.ErrorContext(ctx, "failed to submit defense",
			"case_id", caseID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit defense")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionDefenseSubmitted,
		CaseID:  caseID,
		Outcome: string(cases.StatusInDefense),
	})

	s.notifyAuthority(ctx, d)

	return d, nil
}

// Get returns the defense on a case, if one was submitted.
func (s *Service) Get(ctx context.Context, caseID id.CaseID) (*cases.Defense, error) {
	d, err := s.store.GetDefense(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no defense submitted for this case")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load defense")
	}
	return d, nil
}

// notifyAuthority tells the adjudicating authority a defense arrived. Runs in
// its own goroutine with a detached context so a slow webhook cannot hold the
// request or get cancelled with it.
func (s *Service) notifyAuthority(ctx context.Context, d *cases.Defense) {
	c, err := s.store.GetCase(ctx, d.CaseID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping authority callout, case reload failed",
			"case_id", d.CaseID,
			"error", err,
		)
		return
	}

	go func() {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.DefenseSubmitted(notifyCtx, c, d); err != nil {
			s.logger.WarnContext(notifyCtx, "authority callout failed",
				"case_id", d.CaseID,
				"error", err,
			)
		}
	}()
}
