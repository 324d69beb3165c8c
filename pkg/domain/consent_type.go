package domain

import dErrors "cubby/pkg/domain-errors"

// ConsentType identifies the strength of authorization required before a
// data category may be collected, or recorded when a parent grants it.
//
// Usage: construct via ParseConsentType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ConsentType string

const (
	// ConsentVerifiableParental is COPPA's verifiable parental consent:
	// authorization with proof stronger than a checkbox.
	ConsentVerifiableParental ConsentType = "verifiable_parental_consent"
	// ConsentParentalNotice is the lighter-weight tier: the parent is
	// notified and acknowledges, without identity verification.
	ConsentParentalNotice ConsentType = "parental_notice"
	// ConsentTeenAssent is the teen's own agreement, collected for
	// sensitive categories once COPPA no longer applies.
	ConsentTeenAssent ConsentType = "teen_assent"
	// ConsentNone marks a category as collectable without authorization.
	ConsentNone ConsentType = "none"
)

// validConsentTypes is the single source of truth for valid consent types.
var validConsentTypes = map[ConsentType]bool{
	ConsentVerifiableParental: true,
	ConsentParentalNotice:     true,
	ConsentTeenAssent:         true,
	ConsentNone:               true,
}

// ParseConsentType constructs a ConsentType from external input.
//
// Errors: returns CodeInvalidConsent when the value is empty or unsupported.
func ParseConsentType(s string) (ConsentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidConsent, "consent type cannot be empty")
	}
	t := ConsentType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidConsent, "unknown consent type: "+s)
	}
	return t, nil
}

// IsValid checks if the consent type is one of the supported enum values.
func (t ConsentType) IsValid() bool {
	return validConsentTypes[t]
}

// Grantable reports whether the type can appear in the consent ledger.
// ConsentNone is a policy outcome, not something a parent grants.
func (t ConsentType) Grantable() bool {
	return t.IsValid() && t != ConsentNone
}

// String returns the string representation of the consent type.
func (t ConsentType) String() string {
	return string(t)
}
