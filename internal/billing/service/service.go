package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"condoflow/internal/billing"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/sentinel"
	"condoflow/pkg/requestcontext"
)

// Store reads subscription periods. Implementations: postgres, memory, and a
// redis read-through cache wrapping either.
type Store interface {
	ActivePeriod(ctx context.Context, condoID id.CondominiumID, at time.Time) (*billing.SubscriptionPeriod, error)
}

// Service resolves the active subscription period for a condominium.
type Service struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// ActivePeriod returns the period covering the request time, or a not-found
// domain error when the condominium has no active subscription.
func (s *Service) ActivePeriod(ctx context.Context, condoID id.CondominiumID) (*billing.SubscriptionPeriod, error) {
	if condoID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "condominium_id is required")
	}
	period, err := s.store.ActivePeriod(ctx, condoID, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active subscription period for condominium")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription period")
	}
	return period, nil
}
