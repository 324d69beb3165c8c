// Package domain holds shared domain primitives: typed identifiers and the
// closed enumerations the compliance rules are written against.
//
// IDs are distinct named types over uuid.UUID so a ChildID can never be
// passed where a ParentID is expected; the compiler enforces what review
// would otherwise have to catch. Construct IDs from external input only via
// the ParseX functions, which reject empty, malformed, and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "cubby/pkg/domain-errors"
)

// ParentID identifies a parent (guardian) account.
type ParentID uuid.UUID

// ChildID identifies a child profile.
type ChildID uuid.UUID

// ConversationID identifies a conversation transcript.
type ConversationID uuid.UUID

// ConsentID identifies a single parental-consent grant.
type ConsentID uuid.UUID

// NewParentID generates a fresh random ParentID.
func NewParentID() ParentID { return ParentID(uuid.New()) }

// NewChildID generates a fresh random ChildID.
func NewChildID() ChildID { return ChildID(uuid.New()) }

// NewConversationID generates a fresh random ConversationID.
func NewConversationID() ConversationID { return ConversationID(uuid.New()) }

// NewConsentID generates a fresh random ConsentID.
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }

// parseUUID enforces the shared ID invariant: valid, non-empty, non-nil.
func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}

// ParseParentID constructs a ParentID from external input.
func ParseParentID(s string) (ParentID, error) {
	u, err := parseUUID(s, "parent_id")
	return ParentID(u), err
}

// ParseChildID constructs a ChildID from external input.
func ParseChildID(s string) (ChildID, error) {
	u, err := parseUUID(s, "child_id")
	return ChildID(u), err
}

// ParseConversationID constructs a ConversationID from external input.
func ParseConversationID(s string) (ConversationID, error) {
	u, err := parseUUID(s, "conversation_id")
	return ConversationID(u), err
}

// ParseConsentID constructs a ConsentID from external input.
func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseUUID(s, "consent_id")
	return ConsentID(u), err
}

func (id ParentID) String() string       { return uuid.UUID(id).String() }
func (id ChildID) String() string        { return uuid.UUID(id).String() }
func (id ConversationID) String() string { return uuid.UUID(id).String() }
func (id ConsentID) String() string      { return uuid.UUID(id).String() }

func (id ParentID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ChildID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ConversationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// MarshalText implementations keep IDs as plain UUID strings in JSON.
func (id ParentID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id ChildID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id ConversationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ConsentID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (id *ParentID) UnmarshalText(b []byte) error {
	parsed, err := ParseParentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ChildID) UnmarshalText(b []byte) error {
	parsed, err := ParseChildID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ConversationID) UnmarshalText(b []byte) error {
	parsed, err := ParseConversationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ConsentID) UnmarshalText(b []byte) error {
	parsed, err := ParseConsentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
