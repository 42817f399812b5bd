package store

import (
	"context"
	"sync"
	"time"

	"condoflow/internal/billing"
	id "condoflow/pkg/domain"
	"condoflow/pkg/platform/sentinel"
)

// MemoryStore holds subscription periods in memory. Used by unit tests and
// local runs without Postgres; Seed loads fixtures.
type MemoryStore struct {
	mu      sync.RWMutex
	periods map[id.CondominiumID][]billing.SubscriptionPeriod
}

func NewMemory() *MemoryStore {
	return &MemoryStore{periods: make(map[id.CondominiumID][]billing.SubscriptionPeriod)}
}

// Seed registers a period for a condominium.
func (s *MemoryStore) Seed(period billing.SubscriptionPeriod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[period.CondominiumID] = append(s.periods[period.CondominiumID], period)
}

func (s *MemoryStore) ActivePeriod(_ context.Context, condoID id.CondominiumID, at time.Time) (*billing.SubscriptionPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.periods[condoID] {
		if p.Contains(at) {
			period := p
			return &period, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
