package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"cubby/internal/consent/models"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/sentinel"
)

// MemoryStore is an in-memory ConsentStore for dev and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	grants map[id.ConsentID]*models.ConsentGrant
}

// NewMemoryStore creates an empty in-memory consent store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{grants: make(map[id.ConsentID]*models.ConsentGrant)}
}

func (s *MemoryStore) Create(_ context.Context, grant *models.ConsentGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.grants[grant.ID]; exists {
		return sentinel.ErrConflict
	}
	s.grants[grant.ID] = copyGrant(grant)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, consentID id.ConsentID) (*models.ConsentGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grant, ok := s.grants[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyGrant(grant), nil
}

func (s *MemoryStore) ListByChild(_ context.Context, childID id.ChildID) ([]*models.ConsentGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ConsentGrant
	for _, grant := range s.grants {
		if grant.ChildID == childID {
			out = append(out, copyGrant(grant))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GrantedAt.Before(out[j].GrantedAt)
	})
	return out, nil
}

func (s *MemoryStore) Revoke(_ context.Context, consentID id.ConsentID, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[consentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if grant.RevokedAt != nil {
		return sentinel.ErrRevoked
	}
	stamp := revokedAt
	grant.RevokedAt = &stamp
	return nil
}

func copyGrant(grant *models.ConsentGrant) *models.ConsentGrant {
	copied := *grant
	if grant.ExpiresAt != nil {
		expires := *grant.ExpiresAt
		copied.ExpiresAt = &expires
	}
	if grant.RevokedAt != nil {
		revoked := *grant.RevokedAt
		copied.RevokedAt = &revoked
	}
	return &copied
}
