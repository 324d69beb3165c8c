package handler

import (
	"time"

	"github.com/google/uuid"

	"cubby/internal/conversation/models"
	id "cubby/pkg/domain"
)

// ConversationResponse is the public view of a conversation.
type ConversationResponse struct {
	ID             id.ConversationID `json:"id"`
	ChildID        id.ChildID        `json:"child_id"`
	StartedAt      time.Time         `json:"started_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	MessageCount   int               `json:"message_count"`
	RetainUntil    time.Time         `json:"retain_until"`
	DeleteOnExpiry bool              `json:"delete_on_expiry"`
}

// MessageResponse is the public view of a transcript turn.
type MessageResponse struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID id.ConversationID `json:"conversation_id"`
	Role           string            `json:"role"`
	Content        string            `json:"content"`
	CreatedAt      time.Time         `json:"created_at"`
}

// TranscriptResponse is a conversation with its full transcript.
type TranscriptResponse struct {
	Conversation *ConversationResponse `json:"conversation"`
	Messages     []*MessageResponse    `json:"messages"`
}

// ConversationListResponse wraps the list endpoint payload.
type ConversationListResponse struct {
	Conversations []*ConversationResponse `json:"conversations"`
}

// EraseResponse reports how many conversations an erasure removed.
type EraseResponse struct {
	Erased int `json:"erased"`
}

// FromConversation converts a conversation to its public view.
func FromConversation(c *models.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:             c.ID,
		ChildID:        c.ChildID,
		StartedAt:      c.StartedAt,
		LastActivityAt: c.LastActivityAt,
		MessageCount:   c.MessageCount,
		RetainUntil:    c.RetainUntil,
		DeleteOnExpiry: c.DeleteOnExpiry,
	}
}

// FromConversations converts a list of conversations.
func FromConversations(conversations []*models.Conversation) *ConversationListResponse {
	out := make([]*ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, FromConversation(c))
	}
	return &ConversationListResponse{Conversations: out}
}

// FromMessage converts a transcript turn to its public view.
func FromMessage(m *models.Message) *MessageResponse {
	return &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// FromTranscript converts a conversation with its messages.
func FromTranscript(c *models.Conversation, messages []*models.Message) *TranscriptResponse {
	out := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, FromMessage(m))
	}
	return &TranscriptResponse{Conversation: FromConversation(c), Messages: out}
}
