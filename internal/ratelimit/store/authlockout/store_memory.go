// Package authlockout persists login failure accounting.
package authlockout

import (
	"context"
	"sync"

	"cubby/internal/ratelimit/models"
)

// Store persists lockout state by key. A nil state means the key has no
// recorded failures.
type Store interface {
	Get(ctx context.Context, key string) (*models.LockoutState, error)
	Put(ctx context.Context, key string, state *models.LockoutState) error
	Clear(ctx context.Context, key string) error
}

// MemoryStore keeps lockout state in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]models.LockoutState
}

// NewMemoryStore constructs an in-memory lockout store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]models.LockoutState)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*models.LockoutState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[key]
	if !ok {
		return nil, nil
	}
	out := state
	return &out, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, state *models.LockoutState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = *state
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}
