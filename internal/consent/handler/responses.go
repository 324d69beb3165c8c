package handler

import (
	"time"

	"cubby/internal/consent/models"
	id "cubby/pkg/domain"
)

// GrantResponse is the public view of a consent grant.
type GrantResponse struct {
	ID          id.ConsentID `json:"id"`
	ChildID     id.ChildID   `json:"child_id"`
	ConsentType string       `json:"consent_type"`
	Method      string       `json:"method"`
	GrantedAt   time.Time    `json:"granted_at"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	RevokedAt   *time.Time   `json:"revoked_at,omitempty"`
	Active      bool         `json:"active"`
}

// GrantListResponse wraps the list endpoint payload.
type GrantListResponse struct {
	Consents []*GrantResponse `json:"consents"`
}

// FromGrant converts a ledger entry to its public view.
func FromGrant(g *models.ConsentGrant, now time.Time) *GrantResponse {
	return &GrantResponse{
		ID:          g.ID,
		ChildID:     g.ChildID,
		ConsentType: string(g.Type),
		Method:      string(g.Method),
		GrantedAt:   g.GrantedAt,
		ExpiresAt:   g.ExpiresAt,
		RevokedAt:   g.RevokedAt,
		Active:      g.Active(now),
	}
}

// FromGrants converts a list of ledger entries.
func FromGrants(grants []*models.ConsentGrant, now time.Time) *GrantListResponse {
	out := make([]*GrantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, FromGrant(g, now))
	}
	return &GrantListResponse{Consents: out}
}
