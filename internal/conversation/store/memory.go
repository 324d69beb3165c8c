package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"cubby/internal/conversation/models"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/sentinel"
)

// MemoryStore is an in-memory ConversationStore for dev and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[id.ConversationID]*models.Conversation
	messages      map[id.ConversationID][]*models.Message
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[id.ConversationID]*models.Conversation),
		messages:      make(map[id.ConversationID][]*models.Message),
	}
}

func (s *MemoryStore) Create(_ context.Context, conversation *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.conversations[conversation.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *conversation
	s.conversations[conversation.ID] = &copied
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, conversationID id.ConversationID) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conversation, ok := s.conversations[conversationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *conversation
	return &copied, nil
}

func (s *MemoryStore) ListByChild(_ context.Context, childID id.ChildID) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Conversation
	for _, conversation := range s.conversations {
		if conversation.ChildID == childID {
			copied := *conversation
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation, ok := s.conversations[message.ConversationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	copied := *message
	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], &copied)
	conversation.MessageCount++
	conversation.LastActivityAt = message.CreatedAt
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, conversationID id.ConversationID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	stored := s.messages[conversationID]
	out := make([]*models.Message, 0, len(stored))
	for _, m := range stored {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryStore) DeleteByChild(_ context.Context, childID id.ChildID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for conversationID, conversation := range s.conversations {
		if conversation.ChildID == childID {
			delete(s.conversations, conversationID)
			delete(s.messages, conversationID)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for conversationID, conversation := range s.conversations {
		if removed >= limit {
			break
		}
		if conversation.Expired(now) {
			delete(s.conversations, conversationID)
			delete(s.messages, conversationID)
			removed++
		}
	}
	return removed, nil
}
