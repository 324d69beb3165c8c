// Package memory provides an in-memory audit store for dev and tests.
package memory

import (
	"context"
	"sync"

	id "cubby/pkg/domain"
	audit "cubby/pkg/platform/audit"
)

// Store keeps events in an append-only slice. Not suitable beyond dev and
// tests; nothing is relayed to Kafka from here.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

// New creates an empty in-memory audit store.
func New() *Store {
	return &Store{}
}

// Append stores the event.
func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByChild returns events for a specific child, oldest first.
func (s *Store) ListByChild(_ context.Context, childID id.ChildID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.ChildID == childID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRecent returns up to limit most recent events, newest first.
func (s *Store) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]audit.Event, 0, limit)
	for i := len(s.events) - 1; i >= len(s.events)-limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// Events returns a copy of everything appended. Test helper.
func (s *Store) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}
