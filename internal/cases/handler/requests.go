package handler

import (
	"strings"
	"time"

	"condoflow/internal/cases"
	casesvc "condoflow/internal/cases/service"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
)

// createCaseRequest is the registration payload. Validate parses the raw
// strings into typed values so the service only ever sees domain types.
type createCaseRequest struct {
	CondominiumID string    `json:"condominium_id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	LegalBasis    string    `json:"legal_basis"`
	OccurredAt    time.Time `json:"occurred_at"`
	BlockID       string    `json:"block_id,omitempty"`
	ApartmentID   string    `json:"apartment_id,omitempty"`
	ResidentID    string    `json:"resident_id,omitempty"`

	parsed casesvc.RegisterInput
}

func (r *createCaseRequest) Validate() error {
	condoID, err := id.ParseCondominiumID(r.CondominiumID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "condominium_id must be a valid UUID")
	}
	caseType, err := cases.ParseCaseType(r.Type)
	if err != nil {
		return err
	}
	if strings.TrimSpace(r.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.OccurredAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "occurred_at is required")
	}

	r.parsed = casesvc.RegisterInput{
		CondominiumID: condoID,
		Type:          caseType,
		Title:         r.Title,
		Description:   r.Description,
		Location:      r.Location,
		LegalBasis:    r.LegalBasis,
		OccurredAt:    r.OccurredAt,
	}

	if r.BlockID != "" {
		blockID, err := id.ParseBlockID(r.BlockID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "block_id must be a valid UUID")
		}
		r.parsed.BlockID = &blockID
	}
	if r.ApartmentID != "" {
		apartmentID, err := id.ParseApartmentID(r.ApartmentID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "apartment_id must be a valid UUID")
		}
		r.parsed.ApartmentID = &apartmentID
	}
	if r.ResidentID != "" {
		residentID, err := id.ParseResidentID(r.ResidentID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "resident_id must be a valid UUID")
		}
		r.parsed.ResidentID = &residentID
	}
	return nil
}
