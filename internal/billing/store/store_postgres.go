package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"condoflow/internal/billing"
	id "condoflow/pkg/domain"
	"condoflow/pkg/platform/sentinel"
)

// PostgresStore reads subscription periods from the billing schema. Pure I/O;
// period selection rules beyond time containment belong to the billing service.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ActivePeriod(ctx context.Context, condoID id.CondominiumID, at time.Time) (*billing.SubscriptionPeriod, error) {
	query := `
		SELECT condominium_id, period_start, period_end, notifications_limit, warnings_limit, fines_limit
		FROM subscription_periods
		WHERE condominium_id = $1
		  AND period_start <= $2
		  AND period_end >= $2
		ORDER BY period_start DESC
		LIMIT 1
	`
	var (
		period billing.SubscriptionPeriod
		rawID  string
	)
	err := s.db.QueryRow(ctx, query, condoID.String(), at).Scan(
		&rawID,
		&period.PeriodStart,
		&period.PeriodEnd,
		&period.NotificationsLimit,
		&period.WarningsLimit,
		&period.FinesLimit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get active subscription period: %w", err)
	}
	parsed, err := id.ParseCondominiumID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse condominium id: %w", err)
	}
	period.CondominiumID = parsed
	return &period, nil
}
