package handler

import (
	"cubby/internal/conversation/models"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

// StartRequest is the HTTP request body for POST /conversations.
type StartRequest struct {
	ChildID string `json:"child_id"`

	parsedChildID id.ChildID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *StartRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	childID, err := id.ParseChildID(r.ChildID)
	if err != nil {
		return err
	}
	r.parsedChildID = childID
	return nil
}

// ParsedChildID returns the validated child ID.
func (r *StartRequest) ParsedChildID() id.ChildID { return r.parsedChildID }

// AppendMessageRequest is the HTTP request body for
// POST /conversations/{id}/messages.
type AppendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	parsedRole models.Role
}

// Validate validates and parses the request. Content length is enforced by
// the models constructor on the service path.
func (r *AppendMessageRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	role, err := models.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role
	if r.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	return nil
}

// ParsedRole returns the validated role.
func (r *AppendMessageRequest) ParsedRole() models.Role { return r.parsedRole }
