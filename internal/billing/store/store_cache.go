package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"condoflow/internal/billing"
	platformredis "condoflow/internal/platform/redis"
	id "condoflow/pkg/domain"
)

// CachedStore is a redis read-through cache in front of another period store.
// Billing periods change rarely but are read on every case creation, so a
// short TTL takes the billing schema off the hot path. Cache failures degrade
// to the underlying store and are logged, never surfaced.
type CachedStore struct {
	next interface {
		ActivePeriod(ctx context.Context, condoID id.CondominiumID, at time.Time) (*billing.SubscriptionPeriod, error)
	}
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next *PostgresStore, redis *platformredis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{next: next, redis: redis, ttl: ttl, logger: logger}
}

type cachedPeriod struct {
	CondominiumID      string    `json:"condominium_id"`
	PeriodStart        time.Time `json:"period_start"`
	PeriodEnd          time.Time `json:"period_end"`
	NotificationsLimit int       `json:"notifications_limit"`
	WarningsLimit      int       `json:"warnings_limit"`
	FinesLimit         int       `json:"fines_limit"`
}

func cacheKey(condoID id.CondominiumID) string {
	return "billing:active-period:" + condoID.String()
}

func (s *CachedStore) ActivePeriod(ctx context.Context, condoID id.CondominiumID, at time.Time) (*billing.SubscriptionPeriod, error) {
	if cached := s.lookup(ctx, condoID, at); cached != nil {
		return cached, nil
	}

	period, err := s.next.ActivePeriod(ctx, condoID, at)
	if err != nil {
		return nil, err
	}
	s.save(ctx, condoID, period)
	return period, nil
}

func (s *CachedStore) lookup(ctx context.Context, condoID id.CondominiumID, at time.Time) *billing.SubscriptionPeriod {
	raw, err := s.redis.Get(ctx, cacheKey(condoID)).Bytes()
	if err != nil {
		return nil
	}
	var entry cachedPeriod
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.WarnContext(ctx, "corrupt cached subscription period",
			"condominium_id", condoID,
			"error", err,
		)
		return nil
	}
	parsed, err := id.ParseCondominiumID(entry.CondominiumID)
	if err != nil {
		return nil
	}
	period := &billing.SubscriptionPeriod{
		CondominiumID:      parsed,
		PeriodStart:        entry.PeriodStart,
		PeriodEnd:          entry.PeriodEnd,
		NotificationsLimit: entry.NotificationsLimit,
		WarningsLimit:      entry.WarningsLimit,
		FinesLimit:         entry.FinesLimit,
	}
	// A cached period that no longer covers the request time is stale even
	// inside the TTL (period rollover).
	if !period.Contains(at) {
		return nil
	}
	return period
}

func (s *CachedStore) save(ctx context.Context, condoID id.CondominiumID, period *billing.SubscriptionPeriod) {
	raw, err := json.Marshal(cachedPeriod{
		CondominiumID:      period.CondominiumID.String(),
		PeriodStart:        period.PeriodStart,
		PeriodEnd:          period.PeriodEnd,
		NotificationsLimit: period.NotificationsLimit,
		WarningsLimit:      period.WarningsLimit,
		FinesLimit:         period.FinesLimit,
	})
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(condoID), raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to cache subscription period",
			"condominium_id", condoID,
			"error", err,
		)
	}
}
