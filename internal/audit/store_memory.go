package audit

import (
	"context"
	"sync"

	id "condoflow/pkg/domain"
)

// MemoryStore keeps audit events in memory for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByCase(_ context.Context, caseID id.CaseID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, event := range s.events {
		if event.CaseID == caseID {
			out = append(out, event)
		}
	}
	return out, nil
}
