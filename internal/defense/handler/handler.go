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

// Service defines the defense operations the handler depends on.
type Service interface {
	Submit(ctx context.Context, caseID id.CaseID, content string) (*cases.Defense, error)
	Get(ctx context.Context, caseID id.CaseID) (*cases.Defense, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/defense", h.handleSubmit)
	r.Get("/cases/{caseID}/defense", h.handleGet)
}

type submitRequest struct {
	Content string `json:"content"`
}

func (r *submitRequest) Validate() error {
	if r.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	return nil
}

type defenseResponse struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	ResidentID  string    `json:"resident_id"`
	Content     string    `json:"content"`
	SubmittedAt time.Time `json:"submitted_at"`
	Deadline    time.Time `json:"deadline"`
}

func toDefenseResponse(d *cases.Defense) defenseResponse {
	return defenseResponse{
		ID:          d.ID.String(),
		CaseID:      d.CaseID.String(),
		ResidentID:  d.ResidentID.String(),
		Content:     d.Content,
		SubmittedAt: d.SubmittedAt,
		Deadline:    d.Deadline,
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case id must be a valid UUID"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[*submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Submit(ctx, caseID, req.Content)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to submit defense",
				"request_id", requestID,
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toDefenseResponse(d))
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
			h.logger.ErrorContext(ctx, "failed to load defense",
				"request_id", requestcontext.RequestID(ctx),
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDefenseResponse(d))
}
