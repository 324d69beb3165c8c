package store

import (
	"context"
	"sync"

	"cubby/internal/parent/models"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/sentinel"
)

// MemoryStore is an in-memory ParentStore for dev and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.ParentID]*models.Parent
	byEmail map[string]id.ParentID
}

// NewMemoryStore creates an empty in-memory parent store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[id.ParentID]*models.Parent),
		byEmail: make(map[string]id.ParentID),
	}
}

func (s *MemoryStore) Create(_ context.Context, parent *models.Parent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[parent.Email]; exists {
		return sentinel.ErrConflict
	}
	copied := *parent
	s.byID[parent.ID] = &copied
	s.byEmail[parent.Email] = parent.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, parentID id.ParentID) (*models.Parent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parent, ok := s.byID[parentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *parent
	return &copied, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.Parent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parentID, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.byID[parentID]
	return &copied, nil
}
