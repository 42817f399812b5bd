package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"condoflow/internal/cases"
	"condoflow/internal/evidence"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/httputil"
	"condoflow/pkg/requestcontext"
)

// Service defines the evidence ledger operations the handler depends on.
type Service interface {
	Attach(ctx context.Context, in evidence.AttachInput) (*cases.Evidence, error)
	List(ctx context.Context, caseID id.CaseID) ([]*cases.Evidence, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/evidence", h.handleAttach)
	r.Get("/cases/{caseID}/evidence", h.handleList)
}

type attachRequest struct {
	FileURL     string `json:"file_url"`
	FileType    string `json:"file_type"`
	Description string `json:"description"`
}

func (r *attachRequest) Validate() error {
	if r.FileURL == "" {
		return dErrors.New(dErrors.CodeValidation, "file_url is required")
	}
	if r.FileType == "" {
		return dErrors.New(dErrors.CodeValidation, "file_type is required")
	}
	return nil
}

type evidenceResponse struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	FileURL     string    `json:"file_url"`
	FileType    string    `json:"file_type"`
	Description string    `json:"description,omitempty"`
	AttachedAt  time.Time `json:"attached_at"`
}

func toEvidenceResponse(ev *cases.Evidence) evidenceResponse {
	return evidenceResponse{
		ID:          ev.ID.String(),
		CaseID:      ev.CaseID.String(),
		FileURL:     ev.FileURL,
		FileType:    ev.FileType,
		Description: ev.Description,
		AttachedAt:  ev.AttachedAt,
	}
}

func (h *Handler) handleAttach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case id must be a valid UUID"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[*attachRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ev, err := h.service.Attach(ctx, evidence.AttachInput{
		CaseID:      caseID,
		FileURL:     req.FileURL,
		FileType:    req.FileType,
		Description: req.Description,
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to attach evidence",
				"request_id", requestID,
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toEvidenceResponse(ev))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case id must be a valid UUID"))
		return
	}

	items, err := h.service.List(ctx, caseID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to list evidence",
				"request_id", requestcontext.RequestID(ctx),
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	out := make([]evidenceResponse, 0, len(items))
	for _, ev := range items {
		out = append(out, toEvidenceResponse(ev))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"evidence": out})
}
