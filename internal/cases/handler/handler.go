package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"condoflow/internal/cases"
	casesvc "condoflow/internal/cases/service"
	"condoflow/internal/quota"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/httputil"
	"condoflow/pkg/requestcontext"
)

// Service defines the case registry operations the handler depends on.
type Service interface {
	Register(ctx context.Context, in casesvc.RegisterInput) (*cases.Case, error)
	Get(ctx context.Context, caseID id.CaseID) (*casesvc.Detail, error)
	ListByCondominium(ctx context.Context, condoID id.CondominiumID) ([]*cases.Case, error)
	QuotaReport(ctx context.Context, condoID id.CondominiumID) (*quota.Report, error)
}

// Handler serves the case registry endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register attaches the case routes. The shared middleware chain (auth
// included) is applied by the transport router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases", h.handleCreate)
	r.Get("/cases/{caseID}", h.handleGet)
	r.Get("/condominiums/{condoID}/cases", h.handleList)
	r.Get("/condominiums/{condoID}/quota", h.handleQuota)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*createCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.service.Register(ctx, req.parsed)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeQuotaExceeded) {
			h.logger.WarnContext(ctx, "case registration rejected by quota",
				"request_id", requestID,
				"condominium_id", req.CondominiumID,
				"type", req.Type,
			)
		} else if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to register case",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toCaseResponse(created))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case id must be a valid UUID"))
		return
	}

	detail, err := h.service.Get(ctx, caseID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to load case",
				"request_id", requestcontext.RequestID(ctx),
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	condoID, err := id.ParseCondominiumID(chi.URLParam(r, "condoID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "condominium id must be a valid UUID"))
		return
	}

	list, err := h.service.ListByCondominium(ctx, condoID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to list cases",
				"request_id", requestcontext.RequestID(ctx),
				"condominium_id", condoID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	out := make([]caseResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCaseResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": out})
}

func (h *Handler) handleQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	condoID, err := id.ParseCondominiumID(chi.URLParam(r, "condoID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "condominium id must be a valid UUID"))
		return
	}

	report, err := h.service.QuotaReport(ctx, condoID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to build quota report",
				"request_id", requestcontext.RequestID(ctx),
				"condominium_id", condoID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toQuotaResponse(report))
}
