// Package directory resolves resident contact details. The authoritative
// registry lives in another system; this module only needs a lookup port so
// notifications and authority callouts can name who they concern.
package directory

import (
	"context"
	"sync"

	id "condoflow/pkg/domain"
	"condoflow/pkg/platform/sentinel"
)

// Contact is the delivery-facing view of a resident.
type Contact struct {
	ResidentID id.ResidentID
	Name       string
	Email      string
	Phone      string
}

// Resolver looks up resident contacts.
type Resolver interface {
	ResidentContact(ctx context.Context, residentID id.ResidentID) (*Contact, error)
}

// MemoryResolver serves seeded contacts for tests and local runs.
type MemoryResolver struct {
	mu       sync.RWMutex
	contacts map[id.ResidentID]Contact
}

func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{contacts: make(map[id.ResidentID]Contact)}
}

func (r *MemoryResolver) Seed(contact Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[contact.ResidentID] = contact
}

func (r *MemoryResolver) ResidentContact(_ context.Context, residentID id.ResidentID) (*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contact, ok := r.contacts[residentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &contact, nil
}
