package store

import (
	"context"
	"sort"
	"sync"

	"cubby/internal/children/models"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/sentinel"
)

// MemoryStore is an in-memory ChildStore for dev and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	children map[id.ChildID]*models.Child
}

// NewMemoryStore creates an empty in-memory child store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{children: make(map[id.ChildID]*models.Child)}
}

func (s *MemoryStore) Create(_ context.Context, child *models.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.children[child.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *child
	s.children[child.ID] = &copied
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, childID id.ChildID) (*models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	child, ok := s.children[childID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *child
	return &copied, nil
}

func (s *MemoryStore) ListByParent(_ context.Context, parentID id.ParentID) ([]*models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Child
	for _, child := range s.children {
		if child.ParentID == parentID {
			copied := *child
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, childID id.ChildID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.children[childID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.children, childID)
	return nil
}
