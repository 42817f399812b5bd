package handler

import (
	"time"

	"condoflow/internal/cases"
	casesvc "condoflow/internal/cases/service"
	"condoflow/internal/quota"
)

type caseResponse struct {
	ID            string    `json:"id"`
	CondominiumID string    `json:"condominium_id"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	DisplayStatus string    `json:"display_status"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Location      string    `json:"location,omitempty"`
	LegalBasis    string    `json:"legal_basis,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	CreatedAt     time.Time `json:"created_at"`
	BlockID       string    `json:"block_id,omitempty"`
	ApartmentID   string    `json:"apartment_id,omitempty"`
	ResidentID    string    `json:"resident_id,omitempty"`
}

func toCaseResponse(c *cases.Case) caseResponse {
	resp := caseResponse{
		ID:            c.ID.String(),
		CondominiumID: c.CondominiumID.String(),
		Type:          string(c.Type),
		Status:        string(c.Status),
		DisplayStatus: c.Status.DisplayLabel(),
		Title:         c.Title,
		Description:   c.Description,
		Location:      c.Location,
		LegalBasis:    c.LegalBasis,
		OccurredAt:    c.OccurredAt,
		CreatedAt:     c.CreatedAt,
	}
	if c.BlockID != nil {
		resp.BlockID = c.BlockID.String()
	}
	if c.ApartmentID != nil {
		resp.ApartmentID = c.ApartmentID.String()
	}
	if c.ResidentID != nil {
		resp.ResidentID = c.ResidentID.String()
	}
	return resp
}

type decisionResponse struct {
	ID            string    `json:"id"`
	Outcome       string    `json:"outcome"`
	Justification string    `json:"justification"`
	DecidedAt     time.Time `json:"decided_at"`
	DecidedBy     string    `json:"decided_by"`
}

type caseDetailResponse struct {
	caseResponse
	Decision *decisionResponse `json:"decision,omitempty"`
}

func toDetailResponse(detail *casesvc.Detail) caseDetailResponse {
	resp := caseDetailResponse{caseResponse: toCaseResponse(detail.Case)}
	if detail.Decision != nil {
		resp.Decision = &decisionResponse{
			ID:            detail.Decision.ID.String(),
			Outcome:       string(detail.Decision.Outcome),
			Justification: detail.Decision.Justification,
			DecidedAt:     detail.Decision.DecidedAt,
			DecidedBy:     detail.Decision.DecidedBy.String(),
		}
	}
	return resp
}

type typeUsageResponse struct {
	Type  string `json:"type"`
	Used  int    `json:"used"`
	Limit int    `json:"limit"`
}

type quotaResponse struct {
	PeriodStart time.Time           `json:"period_start"`
	PeriodEnd   time.Time           `json:"period_end"`
	Usage       []typeUsageResponse `json:"usage"`
}

func toQuotaResponse(report *quota.Report) quotaResponse {
	resp := quotaResponse{
		PeriodStart: report.PeriodStart,
		PeriodEnd:   report.PeriodEnd,
	}
	for _, usage := range report.Usage {
		resp.Usage = append(resp.Usage, typeUsageResponse{
			Type:  string(usage.Type),
			Used:  usage.Used,
			Limit: usage.Limit,
		})
	}
	return resp
}
