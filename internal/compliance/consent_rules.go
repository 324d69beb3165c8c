package compliance

import (
	"cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

// ConsentRequirement states what authorization a single data category needs
// under the resolved bracket. Computed fresh per request, never persisted;
// the consent ledger stores what parents actually granted.
type ConsentRequirement struct {
	Category    domain.DataCategory `json:"category"`
	Required    bool                `json:"required"`
	ConsentType domain.ConsentType  `json:"consent_type"`
}

// ConsentPolicy is the injected, immutable policy configuration for the
// resolver. Deployments tighten these without code changes; they are never
// read from ambient globals.
type ConsentPolicy struct {
	// ChildPreferencesConsent is the consent type required before collecting
	// PREFERENCES from a CHILD. ConsentNone makes the category free to
	// collect; the other categories are pinned to verifiable parental
	// consent by COPPA and are not configurable.
	ChildPreferencesConsent domain.ConsentType

	// TeenSensitiveConsent is the consent type required before collecting a
	// sensitive category from a TEEN.
	TeenSensitiveConsent domain.ConsentType
}

// DefaultConsentPolicy returns the shipped policy: parental notice for a
// child's preferences, teen assent for a teen's sensitive categories.
func DefaultConsentPolicy() ConsentPolicy {
	return ConsentPolicy{
		ChildPreferencesConsent: domain.ConsentParentalNotice,
		TeenSensitiveConsent:    domain.ConsentTeenAssent,
	}
}

// Validate fails fast on consent types outside the closed set.
func (p ConsentPolicy) Validate() error {
	if !p.ChildPreferencesConsent.IsValid() {
		return dErrors.New(dErrors.CodeInvalidPolicyConfig, "child preferences consent type is not a known consent type")
	}
	if !p.TeenSensitiveConsent.IsValid() {
		return dErrors.New(dErrors.CodeInvalidPolicyConfig, "teen sensitive consent type is not a known consent type")
	}
	return nil
}

// ConsentRequirementResolver maps (bracket, requested categories) to the
// ordered list of consent requirements. Pure domain logic - no I/O, no side
// effects.
type ConsentRequirementResolver struct {
	policy ConsentPolicy
}

// NewConsentRequirementResolver validates the policy and constructs the
// resolver. An invalid policy must never make it into a running resolver.
func NewConsentRequirementResolver(policy ConsentPolicy) (*ConsentRequirementResolver, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &ConsentRequirementResolver{policy: policy}, nil
}

// Resolve returns one ConsentRequirement per distinct requested category,
// deterministically ordered by category priority (most sensitive first).
// Callers that short-circuit on the first missing consent rely on this
// ordering.
//
// Errors: CodeUnknownCategory when any requested category is outside the
// closed set. Unknown categories are never dropped: silently ignoring one
// could mask a compliance gap.
func (r *ConsentRequirementResolver) Resolve(bracket domain.ComplianceBracket, requested []domain.DataCategory) ([]ConsentRequirement, error) {
	if !bracket.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown compliance bracket: "+bracket.String())
	}

	seen := make(map[domain.DataCategory]bool, len(requested))
	categories := make([]domain.DataCategory, 0, len(requested))
	for _, c := range requested {
		if !c.IsValid() {
			return nil, dErrors.New(dErrors.CodeUnknownCategory, "unknown data category: "+c.String())
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		categories = append(categories, c)
	}
	domain.SortCategoriesByPriority(categories)

	// ADULT generates no requirements at all, not even required=false rows.
	if bracket == domain.BracketAdult {
		return []ConsentRequirement{}, nil
	}

	requirements := make([]ConsentRequirement, 0, len(categories))
	for _, c := range categories {
		requirements = append(requirements, r.requirementFor(bracket, c))
	}
	return requirements, nil
}

func (r *ConsentRequirementResolver) requirementFor(bracket domain.ComplianceBracket, category domain.DataCategory) ConsentRequirement {
	switch bracket {
	case domain.BracketChild:
		if category == domain.CategoryPreferences {
			required := r.policy.ChildPreferencesConsent != domain.ConsentNone
			return ConsentRequirement{Category: category, Required: required, ConsentType: r.policy.ChildPreferencesConsent}
		}
		// VOICE_RECORDING, CONTACT_INFO, USAGE_ANALYTICS: COPPA-pinned.
		return ConsentRequirement{Category: category, Required: true, ConsentType: domain.ConsentVerifiableParental}

	case domain.BracketTeen:
		if category.Sensitive() {
			required := r.policy.TeenSensitiveConsent != domain.ConsentNone
			return ConsentRequirement{Category: category, Required: required, ConsentType: r.policy.TeenSensitiveConsent}
		}
		return ConsentRequirement{Category: category, Required: false, ConsentType: domain.ConsentNone}
	}

	return ConsentRequirement{Category: category, Required: false, ConsentType: domain.ConsentNone}
}
