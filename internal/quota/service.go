// Package quota enforces per-type case limits tied to the condominium's
// billing period.
//
// Two counts exist on purpose. The reporting count keeps the legacy
// definition: cases whose status is in CountedStatuses, created inside the
// period. The admission guard used during case creation counts every case of
// the type created inside the period regardless of status, so a case reserves
// its quota slot the moment it is registered, so two concurrent creations under
// a limit of one can never both pass. The check itself is executed atomically
// with the insert by the case store; this package only prepares the Spec.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"condoflow/internal/billing"
	"condoflow/internal/cases"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
)

// CountedStatuses is the status set the reporting count includes. Registered
// and in-defense cases are excluded from reports, matching what the billing
// UI has always shown.
var CountedStatuses = []cases.CaseStatus{
	cases.StatusNotified,
	cases.StatusArchived,
	cases.StatusWarned,
	cases.StatusFined,
}

// Spec is the admission rule the case store enforces atomically with the
// insert: at most Limit cases of Type created within [PeriodStart, PeriodEnd].
// Limit billing.Unlimited disables the check.
type Spec struct {
	Type        cases.CaseType
	Limit       int
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Unlimited reports whether the spec imposes no cap.
func (s Spec) Unlimited() bool { return s.Limit == billing.Unlimited }

// BillingSource resolves the active subscription period for a condominium.
type BillingSource interface {
	ActivePeriod(ctx context.Context, condoID id.CondominiumID) (*billing.SubscriptionPeriod, error)
}

// UsageStore counts cases for the reporting side.
type UsageStore interface {
	CountCases(ctx context.Context, condoID id.CondominiumID, caseType cases.CaseType, statuses []cases.CaseStatus, from, to time.Time) (int, error)
}

// Service is the quota guard. Read-only; the atomic check-and-insert lives in
// the case store so admission can never race.
type Service struct {
	billing BillingSource
	usage   UsageStore
	logger  *slog.Logger
}

func New(billingSource BillingSource, usage UsageStore, logger *slog.Logger) (*Service, error) {
	if billingSource == nil {
		return nil, fmt.Errorf("billing source is required")
	}
	if usage == nil {
		return nil, fmt.Errorf("usage store is required")
	}
	return &Service{billing: billingSource, usage: usage, logger: logger}, nil
}

// SpecFor builds the admission spec for creating a case of the given type.
func (s *Service) SpecFor(ctx context.Context, condoID id.CondominiumID, caseType cases.CaseType) (*Spec, error) {
	period, err := s.billing.ActivePeriod(ctx, condoID)
	if err != nil {
		return nil, err
	}
	return &Spec{
		Type:        caseType,
		Limit:       period.LimitFor(caseType),
		PeriodStart: period.PeriodStart,
		PeriodEnd:   period.PeriodEnd,
	}, nil
}

// TypeUsage is the reported usage for one case type.
type TypeUsage struct {
	Type  cases.CaseType
	Used  int
	Limit int
}

// Report is the per-type usage view for a condominium's active period.
type Report struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Usage       []TypeUsage
}

// Usage computes the reporting counts for every case type against the active
// period. Independent of call order: it is a pure projection over the store.
func (s *Service) Usage(ctx context.Context, condoID id.CondominiumID) (*Report, error) {
	period, err := s.billing.ActivePeriod(ctx, condoID)
	if err != nil {
		return nil, err
	}

	report := &Report{PeriodStart: period.PeriodStart, PeriodEnd: period.PeriodEnd}
	for _, caseType := range []cases.CaseType{cases.TypeWarning, cases.TypeNotice, cases.TypeFine} {
		used, err := s.usage.CountCases(ctx, condoID, caseType, CountedStatuses, period.PeriodStart, period.PeriodEnd)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count case usage")
		}
		report.Usage = append(report.Usage, TypeUsage{
			Type:  caseType,
			Used:  used,
			Limit: period.LimitFor(caseType),
		})
	}
	return report, nil
}
