// Package domain holds typed identifiers shared across the module.
//
// Every entity gets its own UUID-backed type so a case id can never be passed
// where a condominium id is expected. Parse functions enforce the invariant
// that identifiers are valid, non-empty, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "condoflow/pkg/domain-errors"
)

type (
	// CondominiumID identifies the condominium a case belongs to.
	CondominiumID uuid.UUID
	// CaseID identifies one infraction case.
	CaseID uuid.UUID
	// EvidenceID identifies one evidence item on a case.
	EvidenceID uuid.UUID
	// DefenseID identifies the resident defense on a case.
	DefenseID uuid.UUID
	// DecisionID identifies the adjudication recorded on a case.
	DecisionID uuid.UUID
	// NotificationEventID identifies one notification lifecycle record.
	NotificationEventID uuid.UUID
	// ResidentID identifies the resident a case is raised against.
	ResidentID uuid.UUID
	// BlockID identifies a building block inside a condominium.
	BlockID uuid.UUID
	// ApartmentID identifies an apartment inside a block.
	ApartmentID uuid.UUID
	// ActorID identifies the authenticated actor performing an operation.
	ActorID uuid.UUID
)

func parse(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return parsed, nil
}

func ParseCondominiumID(raw string) (CondominiumID, error) {
	u, err := parse(raw, "condominium_id")
	return CondominiumID(u), err
}

func ParseCaseID(raw string) (CaseID, error) {
	u, err := parse(raw, "case_id")
	return CaseID(u), err
}

func ParseEvidenceID(raw string) (EvidenceID, error) {
	u, err := parse(raw, "evidence_id")
	return EvidenceID(u), err
}

func ParseDefenseID(raw string) (DefenseID, error) {
	u, err := parse(raw, "defense_id")
	return DefenseID(u), err
}

func ParseDecisionID(raw string) (DecisionID, error) {
	u, err := parse(raw, "decision_id")
	return DecisionID(u), err
}

func ParseNotificationEventID(raw string) (NotificationEventID, error) {
	u, err := parse(raw, "notification_event_id")
	return NotificationEventID(u), err
}

func ParseResidentID(raw string) (ResidentID, error) {
	u, err := parse(raw, "resident_id")
	return ResidentID(u), err
}

func ParseBlockID(raw string) (BlockID, error) {
	u, err := parse(raw, "block_id")
	return BlockID(u), err
}

func ParseApartmentID(raw string) (ApartmentID, error) {
	u, err := parse(raw, "apartment_id")
	return ApartmentID(u), err
}

func ParseActorID(raw string) (ActorID, error) {
	u, err := parse(raw, "actor_id")
	return ActorID(u), err
}

func NewCaseID() CaseID                         { return CaseID(uuid.New()) }
func NewEvidenceID() EvidenceID                 { return EvidenceID(uuid.New()) }
func NewDefenseID() DefenseID                   { return DefenseID(uuid.New()) }
func NewDecisionID() DecisionID                 { return DecisionID(uuid.New()) }
func NewNotificationEventID() NotificationEventID {
	return NotificationEventID(uuid.New())
}

func (v CondominiumID) String() string       { return uuid.UUID(v).String() }
func (v CaseID) String() string              { return uuid.UUID(v).String() }
func (v EvidenceID) String() string          { return uuid.UUID(v).String() }
func (v DefenseID) String() string           { return uuid.UUID(v).String() }
func (v DecisionID) String() string          { return uuid.UUID(v).String() }
func (v NotificationEventID) String() string { return uuid.UUID(v).String() }
func (v ResidentID) String() string          { return uuid.UUID(v).String() }
func (v BlockID) String() string             { return uuid.UUID(v).String() }
func (v ApartmentID) String() string         { return uuid.UUID(v).String() }
func (v ActorID) String() string             { return uuid.UUID(v).String() }

// Defined types do not inherit uuid.UUID's method set, so each id implements
// encoding.TextMarshaler itself; without it json.Marshal emits a byte array.
func (v CondominiumID) MarshalText() ([]byte, error)       { return uuid.UUID(v).MarshalText() }
func (v CaseID) MarshalText() ([]byte, error)              { return uuid.UUID(v).MarshalText() }
func (v EvidenceID) MarshalText() ([]byte, error)          { return uuid.UUID(v).MarshalText() }
func (v DefenseID) MarshalText() ([]byte, error)           { return uuid.UUID(v).MarshalText() }
func (v DecisionID) MarshalText() ([]byte, error)          { return uuid.UUID(v).MarshalText() }
func (v NotificationEventID) MarshalText() ([]byte, error) { return uuid.UUID(v).MarshalText() }
func (v ResidentID) MarshalText() ([]byte, error)          { return uuid.UUID(v).MarshalText() }
func (v BlockID) MarshalText() ([]byte, error)             { return uuid.UUID(v).MarshalText() }
func (v ApartmentID) MarshalText() ([]byte, error)         { return uuid.UUID(v).MarshalText() }
func (v ActorID) MarshalText() ([]byte, error)             { return uuid.UUID(v).MarshalText() }

func (v CondominiumID) IsNil() bool       { return uuid.UUID(v) == uuid.Nil }
func (v CaseID) IsNil() bool              { return uuid.UUID(v) == uuid.Nil }
func (v EvidenceID) IsNil() bool          { return uuid.UUID(v) == uuid.Nil }
func (v DefenseID) IsNil() bool           { return uuid.UUID(v) == uuid.Nil }
func (v DecisionID) IsNil() bool          { return uuid.UUID(v) == uuid.Nil }
func (v NotificationEventID) IsNil() bool { return uuid.UUID(v) == uuid.Nil }
func (v ResidentID) IsNil() bool          { return uuid.UUID(v) == uuid.Nil }
func (v BlockID) IsNil() bool             { return uuid.UUID(v) == uuid.Nil }
func (v ApartmentID) IsNil() bool         { return uuid.UUID(v) == uuid.Nil }
func (v ActorID) IsNil() bool             { return uuid.UUID(v) == uuid.Nil }
