// Package evidence maintains the append-only evidence ledger on a case.
// Files live in external blob storage; only durable URLs and type tags are
// recorded here. Items are never updated or removed.
package evidence

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"condoflow/internal/audit"
	"condoflow/internal/cases"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/sentinel"
	"condoflow/pkg/requestcontext"
)

// Store is the persistence surface for evidence rows.
type Store interface {
	AppendEvidence(ctx context.Context, ev *cases.Evidence) error
	ListEvidence(ctx context.Context, caseID id.CaseID) ([]*cases.Evidence, error)
}

type Service struct {
	store   Store
	auditor *audit.Recorder
	logger  *slog.Logger
}

func New(store Store, auditor *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{store: store, auditor: auditor, logger: logger}
}

// AttachInput carries the validated evidence payload.
type AttachInput struct {
	CaseID      id.CaseID
	FileURL     string
	FileType    string
	Description string
}

// Attach appends one evidence item to the case. Managers only; evidence may
// arrive at any point in the lifecycle, including after a decision.
func (s *Service) Attach(ctx context.Context, in AttachInput) (*cases.Evidence, error) {
	if role := requestcontext.Role(ctx); role != requestcontext.RoleManager {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers may attach evidence")
	}
	if strings.TrimSpace(in.FileURL) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "file_url is required")
	}
	if strings.TrimSpace(in.FileType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "file_type is required")
	}

	ev := &cases.Evidence{
		ID:          id.NewEvidenceID(),
		CaseID:      in.CaseID,
		FileURL:     strings.TrimSpace(in.FileURL),
		FileType:    strings.TrimSpace(in.FileType),
		Description: in.Description,
		AttachedAt:  requestcontext.Now(ctx),
	}

	if err := s.store.AppendEvidence(ctx, ev); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		s.logger.ErrorContext(ctx, "failed to attach evidence",
			"case_id", in.CaseID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach evidence")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action: audit.ActionEvidenceAttached,
		CaseID: ev.CaseID,
	})
	return ev, nil
}

// List returns the case's evidence in attachment order.
func (s *Service) List(ctx context.Context, caseID id.CaseID) ([]*cases.Evidence, error) {
	items, err := s.store.ListEvidence(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidence")
	}
	return items, nil
}
