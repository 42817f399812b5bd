// Package store persists the case aggregate: case rows plus the evidence,
// defense, notification and decision rows that attach to them. Lifecycle
// rules that must hold under concurrency (quota admission, single defense,
// single decision, forward-only status) are enforced inside the store's
// atomic methods; everything else belongs to the services.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"condoflow/internal/cases"
	"condoflow/internal/quota"
	id "condoflow/pkg/domain"
	"condoflow/pkg/platform/sentinel"
)

// MemoryStore is the in-memory implementation used by unit tests and local
// runs. A single mutex serializes writes, which makes every multi-row
// mutation trivially atomic.
type MemoryStore struct {
	mu        sync.RWMutex
	cases     map[id.CaseID]*cases.Case
	evidence  map[id.CaseID][]*cases.Evidence
	defenses  map[id.CaseID]*cases.Defense
	decisions map[id.CaseID]*cases.Decision
	events    map[id.NotificationEventID]*cases.NotificationEvent
	eventsBy  map[id.CaseID][]id.NotificationEventID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		cases:     make(map[id.CaseID]*cases.Case),
		evidence:  make(map[id.CaseID][]*cases.Evidence),
		defenses:  make(map[id.CaseID]*cases.Defense),
		decisions: make(map[id.CaseID]*cases.Decision),
		events:    make(map[id.NotificationEventID]*cases.NotificationEvent),
		eventsBy:  make(map[id.CaseID][]id.NotificationEventID),
	}
}

// CreateCaseWithinQuota inserts the case if the condominium's admission count
// for the type stays under the limit. The count and the insert happen under
// one lock hold, so concurrent creations cannot both observe headroom.
// Returns the observed usage count alongside sentinel.ErrQuotaExceeded when
// the limit is hit.
func (s *MemoryStore) CreateCaseWithinQuota(_ context.Context, c *cases.Case, spec quota.Spec) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := 0
	for _, existing := range s.cases {
		if existing.CondominiumID == c.CondominiumID &&
			existing.Type == spec.Type &&
			!existing.CreatedAt.Before(spec.PeriodStart) &&
			!existing.CreatedAt.After(spec.PeriodEnd) {
			used++
		}
	}
	if !spec.Unlimited() && used >= spec.Limit {
		return used, sentinel.ErrQuotaExceeded
	}

	stored := *c
	s.cases[c.ID] = &stored
	return used, nil
}

func (s *MemoryStore) GetCase(_ context.Context, caseID id.CaseID) (*cases.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caseCopy(caseID)
}

func (s *MemoryStore) ListCasesByCondominium(_ context.Context, condoID id.CondominiumID) ([]*cases.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*cases.Case
	for _, c := range s.cases {
		if c.CondominiumID == condoID {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CountCases implements the quota reporting count.
func (s *MemoryStore) CountCases(_ context.Context, condoID id.CondominiumID, caseType cases.CaseType, statuses []cases.CaseStatus, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.cases {
		if c.CondominiumID != condoID || c.Type != caseType {
			continue
		}
		if c.CreatedAt.Before(from) || c.CreatedAt.After(to) {
			continue
		}
		for _, status := range statuses {
			if c.Status == status {
				count++
				break
			}
		}
	}
	return count, nil
}

// AppendEvidence attaches an evidence item to an existing case.
func (s *MemoryStore) AppendEvidence(_ context.Context, ev *cases.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases[ev.CaseID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *ev
	s.evidence[ev.CaseID] = append(s.evidence[ev.CaseID], &copied)
	return nil
}

func (s *MemoryStore) ListEvidence(_ context.Context, caseID id.CaseID) ([]*cases.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.evidence[caseID]
	out := make([]*cases.Evidence, 0, len(items))
	for _, ev := range items {
		copied := *ev
		out = append(out, &copied)
	}
	return out, nil
}

// InsertDefenseAtomic stores the defense and moves the case to in_defense in
// one step. Fails with ErrInvalidState when the case is past the defense
// window states and ErrConflict when a defense already exists.
func (s *MemoryStore) InsertDefenseAtomic(_ context.Context, d *cases.Defense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[d.CaseID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, exists := s.defenses[d.CaseID]; exists {
		return sentinel.ErrConflict
	}
	if c.Status != cases.StatusRegistered && c.Status != cases.StatusNotified {
		return sentinel.ErrInvalidState
	}

	copied := *d
	s.defenses[d.CaseID] = &copied
	c.Status = cases.StatusInDefense
	return nil
}

func (s *MemoryStore) GetDefense(_ context.Context, caseID id.CaseID) (*cases.Defense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.defenses[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

// RecordSentAtomic appends a notification event and, only when the case is
// still registered, transitions it to notified. Repeat sends leave the status
// untouched.
func (s *MemoryStore) RecordSentAtomic(_ context.Context, ev *cases.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[ev.CaseID]
	if !ok {
		return sentinel.ErrNotFound
	}

	copied := *ev
	s.events[ev.ID] = &copied
	s.eventsBy[ev.CaseID] = append(s.eventsBy[ev.CaseID], ev.ID)

	if c.Status == cases.StatusRegistered {
		c.Status = cases.StatusNotified
	}
	return nil
}

func (s *MemoryStore) GetNotificationEvent(_ context.Context, eventID id.NotificationEventID) (*cases.NotificationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *ev
	return &copied, nil
}

func (s *MemoryStore) ListNotificationEvents(_ context.Context, caseID id.CaseID) ([]*cases.NotificationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.eventsBy[caseID]
	out := make([]*cases.NotificationEvent, 0, len(ids))
	for _, eventID := range ids {
		copied := *s.events[eventID]
		out = append(out, &copied)
	}
	return out, nil
}

// SetDeliveredAt records the delivery timestamp once; repeats are no-ops.
func (s *MemoryStore) SetDeliveredAt(_ context.Context, eventID id.NotificationEventID, at time.Time) error {
	return s.setEventTimestamp(eventID, at, func(ev *cases.NotificationEvent) **time.Time { return &ev.DeliveredAt })
}

// SetReadAt records the read timestamp once; repeats are no-ops.
func (s *MemoryStore) SetReadAt(_ context.Context, eventID id.NotificationEventID, at time.Time) error {
	return s.setEventTimestamp(eventID, at, func(ev *cases.NotificationEvent) **time.Time { return &ev.ReadAt })
}

// SetAcknowledgedAt records the acknowledge timestamp once; repeats are no-ops.
func (s *MemoryStore) SetAcknowledgedAt(_ context.Context, eventID id.NotificationEventID, at time.Time) error {
	return s.setEventTimestamp(eventID, at, func(ev *cases.NotificationEvent) **time.Time { return &ev.AcknowledgedAt })
}

func (s *MemoryStore) setEventTimestamp(eventID id.NotificationEventID, at time.Time, field func(*cases.NotificationEvent) **time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	slot := field(ev)
	if *slot == nil {
		stamped := at
		*slot = &stamped
	}
	return nil
}

// InsertDecisionAtomic stores the decision and closes the case in one step.
// Fails with ErrInvalidState when the case already reached a terminal status.
func (s *MemoryStore) InsertDecisionAtomic(_ context.Context, d *cases.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[d.CaseID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.Status.Terminal() {
		return sentinel.ErrInvalidState
	}
	if _, exists := s.decisions[d.CaseID]; exists {
		return sentinel.ErrConflict
	}

	copied := *d
	s.decisions[d.CaseID] = &copied
	c.Status = d.Outcome.Status()
	return nil
}

func (s *MemoryStore) GetDecision(_ context.Context, caseID id.CaseID) (*cases.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decisions[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (s *MemoryStore) caseCopy(caseID id.CaseID) (*cases.Case, error) {
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *c
	return &copied, nil
}
