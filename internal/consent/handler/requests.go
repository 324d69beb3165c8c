package handler

import (
	"time"

	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

// GrantRequest is the HTTP request body for POST /children/{id}/consents.
type GrantRequest struct {
	ConsentType string `json:"consent_type"`
	Method      string `json:"method"`
	ExpiresAt   string `json:"expires_at,omitempty"` // RFC 3339, optional

	parsedType      id.ConsentType
	parsedMethod    id.ConsentMethod
	parsedExpiresAt *time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *GrantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	consentType, err := id.ParseConsentType(r.ConsentType)
	if err != nil {
		return err
	}
	r.parsedType = consentType

	method, err := id.ParseConsentMethod(r.Method)
	if err != nil {
		return err
	}
	r.parsedMethod = method

	if r.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, r.ExpiresAt)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "expires_at must be RFC 3339")
		}
		r.parsedExpiresAt = &expiresAt
	}
	return nil
}

// ParsedType returns the validated consent type.
func (r *GrantRequest) ParsedType() id.ConsentType { return r.parsedType }

// ParsedMethod returns the validated consent method.
func (r *GrantRequest) ParsedMethod() id.ConsentMethod { return r.parsedMethod }

// ParsedExpiresAt returns the validated expiry, or nil.
func (r *GrantRequest) ParsedExpiresAt() *time.Time { return r.parsedExpiresAt }

// RevokeRequest is the HTTP request body for POST /children/{id}/consents/revoke.
type RevokeRequest struct {
	ConsentID string `json:"consent_id"`

	parsedConsentID id.ConsentID
}

// Validate validates and parses the request.
func (r *RevokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	consentID, err := id.ParseConsentID(r.ConsentID)
	if err != nil {
		return err
	}
	r.parsedConsentID = consentID
	return nil
}

// ParsedConsentID returns the validated consent ID.
func (r *RevokeRequest) ParsedConsentID() id.ConsentID { return r.parsedConsentID }
