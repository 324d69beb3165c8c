// Package models holds the parental-consent ledger types.
package models

import (
	"time"

	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

// ConsentGrant is one ledger entry. Grants are never deleted; revocation
// stamps RevokedAt so the ledger remains a complete legal trail.
type ConsentGrant struct {
	ID        id.ConsentID
	ChildID   id.ChildID
	Type      id.ConsentType
	Method    id.ConsentMethod
	GrantedBy id.ParentID
	GrantedAt time.Time
	ExpiresAt *time.Time
	RevokedAt *time.Time
}

// Active reports whether the grant is in force at the given time: granted,
// not revoked, not expired.
func (g *ConsentGrant) Active(now time.Time) bool {
	if g.RevokedAt != nil && !g.RevokedAt.After(now) {
		return false
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return false
	}
	return !g.GrantedAt.After(now)
}

// NewConsentGrant builds a validated ledger entry.
func NewConsentGrant(
	consentID id.ConsentID,
	childID id.ChildID,
	consentType id.ConsentType,
	method id.ConsentMethod,
	grantedBy id.ParentID,
	grantedAt time.Time,
	expiresAt *time.Time,
) (*ConsentGrant, error) {
	if !consentType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidConsent, "unknown consent type")
	}
	if !consentType.Grantable() {
		return nil, dErrors.Newf(dErrors.CodeInvalidConsent, "consent type %s cannot be granted", consentType)
	}
	if !method.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidConsent, "unknown consent method")
	}
	if !method.Satisfies(consentType) {
		return nil, dErrors.Newf(dErrors.CodeInvalidConsent,
			"method %s is not sufficient for %s", method, consentType)
	}
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if expiresAt != nil && !expiresAt.After(grantedAt) {
		return nil, dErrors.New(dErrors.CodeValidation, "expires_at must be after the grant time")
	}
	return &ConsentGrant{
		ID:        consentID,
		ChildID:   childID,
		Type:      consentType,
		Method:    method,
		GrantedBy: grantedBy,
		GrantedAt: grantedAt,
		ExpiresAt: expiresAt,
	}, nil
}
