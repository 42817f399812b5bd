// Package audit records who did what to which case. Events are emitted from
// domain logic, buffered on a channel, and drained by a worker into the store
// and the optional Kafka sink. Keep Event transport-agnostic so stores and
// sinks can fan out.
package audit

import (
	"time"

	id "condoflow/pkg/domain"
)

type Action string

const (
	ActionCaseRegistered           Action = "case_registered"
	ActionCaseRejectedQuota        Action = "case_rejected_quota"
	ActionEvidenceAttached         Action = "evidence_attached"
	ActionDefenseSubmitted         Action = "defense_submitted"
	ActionNotificationSent         Action = "notification_sent"
	ActionNotificationDelivered    Action = "notification_delivered"
	ActionNotificationRead         Action = "notification_read"
	ActionNotificationAcknowledged Action = "notification_acknowledged"
	ActionDecisionIssued           Action = "decision_issued"
)

// Event is one audited domain action.
type Event struct {
	Timestamp     time.Time        `json:"timestamp"`
	Action        Action           `json:"action"`
	CondominiumID id.CondominiumID `json:"condominium_id"`
	CaseID        id.CaseID        `json:"case_id"`
	ActorID       string           `json:"actor_id"`
	ActorRole     string           `json:"actor_role"`
	Outcome       string           `json:"outcome,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	RequestID     string           `json:"request_id,omitempty"`
	Device        string           `json:"device,omitempty"`
}
