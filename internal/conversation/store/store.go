// Package store defines persistence for conversation transcripts.
package store

import (
	"context"
	"time"

	"cubby/internal/conversation/models"
	id "cubby/pkg/domain"
)

// ConversationStore persists conversations and their messages.
// Implementations return sentinel.ErrNotFound for missing conversations.
type ConversationStore interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	FindByID(ctx context.Context, conversationID id.ConversationID) (*models.Conversation, error)
	ListByChild(ctx context.Context, childID id.ChildID) ([]*models.Conversation, error)

	// AppendMessage stores a turn and bumps the conversation's message
	// count and last-activity timestamp.
	AppendMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, conversationID id.ConversationID) ([]*models.Message, error)

	// DeleteByChild erases all conversations and messages for a child,
	// returning the number of conversations removed.
	DeleteByChild(ctx context.Context, childID id.ChildID) (int, error)

	// DeleteExpired erases up to limit conversations whose retention
	// window has passed and that are marked delete-on-expiry, returning
	// the number removed. Used by the retention sweeper.
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int, error)
}
