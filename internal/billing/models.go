// Package billing exposes the subscription data the quota guard reads. The
// periods themselves are managed by the external billing service; this module
// only ever reads them.
package billing

import (
	"time"

	"condoflow/internal/cases"
	id "condoflow/pkg/domain"
)

// Unlimited is the limit value meaning "no cap" for a case type.
const Unlimited = -1

// SubscriptionPeriod is the billing window and per-type limits for one
// condominium. NotificationsLimit caps notice-type cases (the billing service
// kept the legacy field name).
type SubscriptionPeriod struct {
	CondominiumID      id.CondominiumID
	PeriodStart        time.Time
	PeriodEnd          time.Time
	NotificationsLimit int
	WarningsLimit      int
	FinesLimit         int
}

// LimitFor returns the limit applying to the given case type.
func (p SubscriptionPeriod) LimitFor(caseType cases.CaseType) int {
	switch caseType {
	case cases.TypeWarning:
		return p.WarningsLimit
	case cases.TypeFine:
		return p.FinesLimit
	default:
		return p.NotificationsLimit
	}
}

// Contains reports whether t falls inside the period (inclusive bounds).
func (p SubscriptionPeriod) Contains(t time.Time) bool {
	return !t.Before(p.PeriodStart) && !t.After(p.PeriodEnd)
}
