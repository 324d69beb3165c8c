// Package models holds conversation transcript types.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

const maxMessageLength = 4096

// Role identifies who produced a transcript turn.
type Role string

const (
	RoleChild     Role = "child"
	RoleCompanion Role = "companion"
)

var validRoles = map[Role]bool{
	RoleChild:     true,
	RoleCompanion: true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !validRoles[role] {
		return "", dErrors.New(dErrors.CodeValidation, "role must be child or companion")
	}
	return role, nil
}

// Conversation is one transcript with its retention terms, fixed at start
// time from the engine's retention policy for the child's bracket.
type Conversation struct {
	ID             id.ConversationID
	ChildID        id.ChildID
	StartedAt      time.Time
	LastActivityAt time.Time
	MessageCount   int
	RetainUntil    time.Time
	DeleteOnExpiry bool
}

// Expired reports whether the conversation is past its retention window and
// marked for automatic deletion.
func (c *Conversation) Expired(now time.Time) bool {
	return c.DeleteOnExpiry && c.RetainUntil.Before(now)
}

// Message is a single transcript turn.
type Message struct {
	ID             uuid.UUID
	ConversationID id.ConversationID
	Role           Role
	Content        string
	CreatedAt      time.Time
}

// NewMessage builds a validated transcript turn.
func NewMessage(conversationID id.ConversationID, role Role, content string, createdAt time.Time) (*Message, error) {
	if !validRoles[role] {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be child or companion")
	}
	if strings.TrimSpace(content) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if len(content) > maxMessageLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "content must be at most %d bytes", maxMessageLength)
	}
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      createdAt,
	}, nil
}
