package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"condoflow/internal/cases"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/httputil"
	"condoflow/pkg/requestcontext"
)

// Service defines the decision authority operations the handler depends on.
type Service interface {
	Decide(ctx context.Context, caseID id.CaseID, outcome cases.DecisionOutcome, justification string) (*cases.Decision, error)
	Get(ctx context.Context, caseID id.CaseID) (*cases.Decision, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/decision", h.handleDecide)
	r.Get("/cases/{caseID}/decision", h.handleGet)
}

type decideRequest struct {
	Outcome       string `json:"outcome"`
	Justification string `json:"justification"`

	parsedOutcome cases.DecisionOutcome
}

func (r *decideRequest) Validate() error {
	outcome, err := cases.ParseDecisionOutcome(r.Outcome)
	if err != nil {
		return err
	}
	if r.Justification == "" {
		return dErrors.New(dErrors.CodeValidation, "justification is required")
	}
	r.parsedOutcome = outcome
	return nil
}

type decisionResponse struct {
	ID            string    `json:"id"`
	CaseID        string    `json:"case_id"`
	Outcome       string    `json:"outcome"`
	Justification string    `json:"justification"`
	DecidedAt     time.Time `json:"decided_at"`
	DecidedBy     string    `json:"decided_by"`
}

func toDecisionResponse(d *cases.Decision) decisionResponse {
	return decisionResponse{
		ID:            d.ID.String(),
		CaseID:        d.CaseID.String(),
		Outcome:       string(d.Outcome),
		Justification: d.Justification,
		DecidedAt:     d.DecidedAt,
		DecidedBy:     d.DecidedBy.String(),
	}
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case id must be a valid UUID"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[*decideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Decide(ctx, caseID, req.parsedOutcome, req.Justification)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to record decision",
				"request_id", requestID,
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toDecisionResponse(d))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case id must be a valid UUID"))
		return
	}

	d, err := h.service.Get(ctx, caseID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to load decision",
				"request_id", requestcontext.RequestID(ctx),
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(d))
}
