package handler

import (
	"time"

	"cubby/internal/compliance"
)

// DecisionResponse is the HTTP view of an engine decision.
type DecisionResponse struct {
	Bracket          string                          `json:"bracket"`
	Allowed          bool                            `json:"allowed"`
	DenialReason     string                          `json:"denial_reason,omitempty"`
	RequiredConsents []compliance.ConsentRequirement `json:"required_consents"`
	Retention        compliance.RetentionPolicy      `json:"retention_policy"`
	EvaluatedAt      time.Time                       `json:"evaluated_at"`
}

// FromDecision converts an engine decision to its HTTP view.
func FromDecision(d *compliance.Decision) *DecisionResponse {
	return &DecisionResponse{
		Bracket:          string(d.Bracket),
		Allowed:          d.Allowed,
		DenialReason:     d.DenialReason,
		RequiredConsents: d.RequiredConsents,
		Retention:        d.Retention,
		EvaluatedAt:      d.EvaluatedAt,
	}
}

// PolicyResponse is the HTTP view of the active policy configuration.
type PolicyResponse struct {
	ChildPreferencesConsent string `json:"child_preferences_consent"`
	TeenSensitiveConsent    string `json:"teen_sensitive_consent"`
	ChildRetentionDays      int    `json:"child_retention_days"`
	StandardRetentionDays   int    `json:"standard_retention_days"`
}

// FromPolicy converts the policy configuration to its HTTP view.
func FromPolicy(cfg compliance.PolicyConfig) *PolicyResponse {
	return &PolicyResponse{
		ChildPreferencesConsent: string(cfg.Consent.ChildPreferencesConsent),
		TeenSensitiveConsent:    string(cfg.Consent.TeenSensitiveConsent),
		ChildRetentionDays:      cfg.Retention.ChildRetentionDays,
		StandardRetentionDays:   cfg.Retention.StandardRetentionDays,
	}
}
