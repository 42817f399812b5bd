package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"condoflow/internal/cases"
	"condoflow/internal/notification"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/httputil"
	"condoflow/pkg/requestcontext"
)

// Service defines the notification tracker operations the handler depends on.
type Service interface {
	RecordSent(ctx context.Context, caseID id.CaseID, channel string) (*cases.NotificationEvent, error)
	Track(ctx context.Context, eventID id.NotificationEventID, stage notification.TrackingStage, at time.Time) (*cases.NotificationEvent, error)
	List(ctx context.Context, caseID id.CaseID) ([]*cases.NotificationEvent, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/notifications", h.handleRecordSent)
	r.Get("/cases/{caseID}/notifications", h.handleList)
	r.Post("/notifications/{eventID}/delivered", h.trackStage(notification.StageDelivered))
	r.Post("/notifications/{eventID}/read", h.trackStage(notification.StageRead))
	r.Post("/notifications/{eventID}/acknowledged", h.trackStage(notification.StageAcknowledged))
}

type recordSentRequest struct {
	Channel string `json:"channel"`
}

func (r *recordSentRequest) Validate() error {
	if r.Channel == "" {
		return dErrors.New(dErrors.CodeValidation, "channel is required")
	}
	return nil
}

type eventResponse struct {
	ID             string     `json:"id"`
	CaseID         string     `json:"case_id"`
	Channel        string     `json:"channel"`
	SentAt         time.Time  `json:"sent_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

func toEventResponse(ev *cases.NotificationEvent) eventResponse {
	return eventResponse{
		ID:             ev.ID.String(),
		CaseID:         ev.CaseID.String(),
		Channel:        ev.Channel,
		SentAt:         ev.SentAt,
		DeliveredAt:    ev.DeliveredAt,
		ReadAt:         ev.ReadAt,
		AcknowledgedAt: ev.AcknowledgedAt,
	}
}

func (h *Handler) handleRecordSent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case id must be a valid UUID"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[*recordSentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ev, err := h.service.RecordSent(ctx, caseID, req.Channel)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to record notification",
				"request_id", requestID,
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toEventResponse(ev))
}

// trackRequest is the optional callback body. Channels that report when the
// stage happened supply the timestamp; an empty body means "now".
type trackRequest struct {
	Timestamp *time.Time `json:"timestamp"`
}

func (h *Handler) trackStage(stage notification.TrackingStage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		eventID, err := id.ParseNotificationEventID(chi.URLParam(r, "eventID"))
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "notification event id must be a valid UUID"))
			return
		}

		var req trackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
		var at time.Time
		if req.Timestamp != nil {
			at = *req.Timestamp
		}

		ev, err := h.service.Track(ctx, eventID, stage, at)
		if err != nil {
			if dErrors.CodeOf(err) == dErrors.CodeInternal {
				h.logger.ErrorContext(ctx, "failed to record tracking update",
					"request_id", requestcontext.RequestID(ctx),
					"event_id", eventID,
					"stage", stage,
					"error", err.Error(),
				)
			}
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, toEventResponse(ev))
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case id must be a valid UUID"))
		return
	}

	events, err := h.service.List(ctx, caseID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to list notification events",
				"request_id", requestcontext.RequestID(ctx),
				"case_id", caseID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": out})
}
