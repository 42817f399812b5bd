// Package decision records the adjudication that closes a case. Exactly one
// decision per case; the outcome maps onto the terminal status and the write
// is atomic with the status transition.
package decision

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"condoflow/internal/audit"
	"condoflow/internal/cases"
	decisionmetrics "condoflow/internal/decision/metrics"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/sentinel"
	"condoflow/pkg/requestcontext"
)

// Store is the persistence surface for decision rows.
type Store interface {
	InsertDecisionAtomic(ctx context.Context, d *cases.Decision) error
	GetDecision(ctx context.Context, caseID id.CaseID) (*cases.Decision, error)
}

type Service struct {
	store   Store
	auditor *audit.Recorder
	metrics *decisionmetrics.Metrics
	logger  *slog.Logger
}

func New(store Store, auditor *audit.Recorder, metrics *decisionmetrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, auditor: auditor, metrics: metrics, logger: logger}
}

// Decide closes the case with the given outcome. Authorities only; rejected
// when the case already reached a terminal status.
func (s *Service) Decide(ctx context.Context, caseID id.CaseID, outcome cases.DecisionOutcome, justification string) (*cases.Decision, error) {
	if role := requestcontext.Role(ctx); role != requestcontext.RoleAuthority {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the adjudicating authority may decide cases")
	}
	if strings.TrimSpace(justification) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "justification is required")
	}

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "acting authority is unknown")
	}

	d := &cases.Decision{
		ID:            id.NewDecisionID(),
		CaseID:        caseID,
		Outcome:       outcome,
		Justification: strings.TrimSpace(justification),
		DecidedAt:     requestcontext.Now(ctx),
		DecidedBy:     actorID,
	}

	if err := s.store.InsertDecisionAtomic(ctx, d); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		case errors.Is(err, sentinel.ErrInvalidState), errors.Is(err, sentinel.ErrConflict):
			s.metrics.IncrementAlreadyTerminal()
			return nil, dErrors.New(dErrors.CodeInvalidState, "case is already closed")
		}
		s.logger.ErrorContext(ctx, "failed to record decision",
			"case_id", caseID,
			"outcome", outcome,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionDecisionIssued,
		CaseID:  caseID,
		Outcome: string(outcome),
	})
	s.metrics.IncrementOutcome(string(outcome))

	return d, nil
}

// Get returns the decision on a case, if one was recorded.
func (s *Service) Get(ctx context.Context, caseID id.CaseID) (*cases.Decision, error) {
	d, err := s.store.GetDecision(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no decision recorded for this case")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load decision")
	}
	return d, nil
}
