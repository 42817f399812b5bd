package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"condoflow/internal/timeline"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/httputil"
	"condoflow/pkg/requestcontext"
)

// Service defines the timeline operations the handler depends on.
type Service interface {
	Build(ctx context.Context, caseID id.CaseID) ([]timeline.Item, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/cases/{caseID}/timeline", h.handleTimeline)
}

type itemResponse struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
	RefID     string    `json:"ref_id"`
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case id must be a valid UUID"))
		return
	}

	items, err := h.service.Build(ctx, caseID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to assemble timeline",
				"request_id", requestcontext.RequestID(ctx),
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemResponse{
			Kind:      string(item.Kind),
			Timestamp: item.Timestamp,
			Summary:   item.Summary,
			RefID:     item.RefID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"timeline": out})
}
