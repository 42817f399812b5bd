// Package cases defines the infraction case aggregate: the case record, its
// lifecycle state machine, and the entities that attach to it (evidence,
// defense, notification events, decision).
package cases

import (
	"time"

	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
)

// CaseType is the kind of infraction record raised against a resident.
// Each type has its own subscription limit.
type CaseType string

const (
	TypeWarning CaseType = "warning"
	TypeNotice  CaseType = "notice"
	TypeFine    CaseType = "fine"
)

// ParseCaseType validates a case type at the trust boundary.
func ParseCaseType(raw string) (CaseType, error) {
	switch t := CaseType(raw); t {
	case TypeWarning, TypeNotice, TypeFine:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "type must be one of warning, notice, fine")
}

// CaseStatus is the lifecycle state of a case. Statuses only move forward
// along the transition graph; a case never reverts.
type CaseStatus string

const (
	StatusRegistered CaseStatus = "registered"
	StatusNotified   CaseStatus = "notified"
	StatusInDefense  CaseStatus = "in_defense"
	StatusArchived   CaseStatus = "archived"
	StatusWarned     CaseStatus = "warned"
	StatusFined      CaseStatus = "fined"
)

// transitions is the forward-only lifecycle graph. A decision may close a
// case from any non-terminal status; a defense may only arrive before one.
var transitions = map[CaseStatus][]CaseStatus{
	StatusRegistered: {StatusNotified, StatusInDefense, StatusArchived, StatusWarned, StatusFined},
	StatusNotified:   {StatusInDefense, StatusArchived, StatusWarned, StatusFined},
	StatusInDefense:  {StatusArchived, StatusWarned, StatusFined},
}

// Terminal reports whether the status accepts no further transitions.
func (s CaseStatus) Terminal() bool {
	switch s {
	case StatusArchived, StatusWarned, StatusFined:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle graph allows moving to next.
func (s CaseStatus) CanTransitionTo(next CaseStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DisplayLabel returns the status label the presentation layer shows.
// "analyzing" is a derived label over in_defense, not a stored status: once a
// defense is in, the case is under analysis until the decision lands.
func (s CaseStatus) DisplayLabel() string {
	if s == StatusInDefense {
		return "analyzing"
	}
	return string(s)
}

// Case is the infraction record. It is created as registered and only ever
// mutated by the notification tracker, defense submission, and decision
// authority. Cases are never physically deleted; the rows are the audit trail.
type Case struct {
	ID            id.CaseID
	CondominiumID id.CondominiumID
	Type          CaseType
	Status        CaseStatus
	Title         string
	Description   string
	Location      string
	LegalBasis    string
	OccurredAt    time.Time
	CreatedAt     time.Time

	BlockID     *id.BlockID
	ApartmentID *id.ApartmentID
	ResidentID  *id.ResidentID
}

// Evidence is a file reference attached to a case. The blob lives in external
// storage; only the durable URL and a type tag are kept here. Append-only.
type Evidence struct {
	ID          id.EvidenceID
	CaseID      id.CaseID
	FileURL     string
	FileType    string
	Description string
	AttachedAt  time.Time
}

// Defense is the resident's written rebuttal. At most one per case; the
// deadline is computed at submission time and stored so historical defenses
// stay stable when the policy window changes.
type Defense struct {
	ID          id.DefenseID
	CaseID      id.CaseID
	ResidentID  id.ResidentID
	Content     string
	SubmittedAt time.Time
	Deadline    time.Time
}

// DecisionOutcome is the adjudication result; each maps onto a terminal status.
type DecisionOutcome string

const (
	OutcomeArchived DecisionOutcome = "archived"
	OutcomeWarned   DecisionOutcome = "warned"
	OutcomeFined    DecisionOutcome = "fined"
)

// ParseDecisionOutcome validates a decision outcome at the trust boundary.
func ParseDecisionOutcome(raw string) (DecisionOutcome, error) {
	switch o := DecisionOutcome(raw); o {
	case OutcomeArchived, OutcomeWarned, OutcomeFined:
		return o, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "decision must be one of archived, warned, fined")
}

// Status returns the terminal case status this outcome closes the case with.
func (o DecisionOutcome) Status() CaseStatus {
	switch o {
	case OutcomeWarned:
		return StatusWarned
	case OutcomeFined:
		return StatusFined
	default:
		return StatusArchived
	}
}

// Decision is the adjudication record that closes a case. The store enforces
// at most one per case, collapsing the legacy unbounded decision list.
type Decision struct {
	ID            id.DecisionID
	CaseID        id.CaseID
	Outcome       DecisionOutcome
	Justification string
	DecidedAt     time.Time
	DecidedBy     id.ActorID
}

// NotificationEvent records one notification attempt to the resident. A case
// may have several (retries, multiple channels). Delivery, read, and
// acknowledge timestamps arrive later from the external channel and are
// idempotent upserts keyed by the event id.
type NotificationEvent struct {
	ID      id.NotificationEventID
	CaseID  id.CaseID
	Channel string
	SentAt  time.Time

	DeliveredAt    *time.Time
	ReadAt         *time.Time
	AcknowledgedAt *time.Time
}
