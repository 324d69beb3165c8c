// Package compliance implements the child-age compliance engine: given an
// age, a set of requested data categories, and the consents already granted,
// it decides whether collection may proceed and under what retention terms.
//
// The engine is purely computational and stateless. Every call operates on
// its own inputs and returns a freshly constructed Decision, so concurrent
// use needs no synchronization. Identical inputs always produce
// field-for-field identical decisions; auditors depend on that.
package compliance

import (
	"time"

	"cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

// AgeInput supplies the child's age as either whole years or a birthdate.
// Exactly one of the two must be set.
type AgeInput struct {
	AgeYears  *int
	Birthdate *time.Time
}

// EvaluateInput is everything a single evaluation needs. Reference supplies
// the clock: the engine itself never calls time.Now, which is what keeps
// evaluation deterministic and replayable.
type EvaluateInput struct {
	Age        AgeInput
	Categories []domain.DataCategory
	Granted    []domain.ConsentType
	Reference  time.Time
}

// Decision is the engine's structured output. Entirely transient:
// constructed per call, handed to the caller, then discarded.
type Decision struct {
	Bracket          domain.ComplianceBracket `json:"bracket"`
	RequiredConsents []ConsentRequirement     `json:"required_consents"`
	Retention        RetentionPolicy          `json:"retention_policy"`
	Allowed          bool                     `json:"allowed"`
	DenialReason     string                   `json:"denial_reason,omitempty"`
	EvaluatedAt      time.Time                `json:"evaluated_at"`
}

// PolicyConfig bundles the injected policy for both resolvers.
type PolicyConfig struct {
	Consent   ConsentPolicy
	Retention RetentionConfig
}

// DefaultPolicyConfig returns the shipped policy configuration.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Consent:   DefaultConsentPolicy(),
		Retention: DefaultRetentionConfig(),
	}
}

// Engine composes the classifier and the two resolvers behind one facade.
// There is deliberately exactly one of these: alternate policies are a
// configuration concern, not a parallel implementation.
type Engine struct {
	classifier AgeClassifier
	consents   *ConsentRequirementResolver
	retention  *RetentionPolicyResolver
}

// NewEngine validates the policy configuration and constructs the engine.
//
// Errors: CodeInvalidPolicyConfig when the configuration violates the
// child-retention invariant or names unknown consent types.
func NewEngine(cfg PolicyConfig) (*Engine, error) {
	consents, err := NewConsentRequirementResolver(cfg.Consent)
	if err != nil {
		return nil, err
	}
	retention, err := NewRetentionPolicyResolver(cfg.Retention)
	if err != nil {
		return nil, err
	}
	return &Engine{
		consents:  consents,
		retention: retention,
	}, nil
}

// Evaluate answers "can this data operation proceed, and under what
// conditions". Steps: classify age, resolve consent requirements, resolve
// retention, then check every required consent against the granted set.
// On denial, DenialReason names the highest-priority missing consent.
//
// Errors propagate synchronously: CodeInvalidAge, CodeUnknownCategory, or
// CodeInvalidConsent from input validation. Nothing is retried or
// translated here; these are caller errors, not operational faults.
func (e *Engine) Evaluate(in EvaluateInput) (*Decision, error) {
	bracket, err := e.classify(in)
	if err != nil {
		return nil, err
	}

	requirements, err := e.consents.Resolve(bracket, in.Categories)
	if err != nil {
		return nil, err
	}

	granted := make(map[domain.ConsentType]bool, len(in.Granted))
	for _, t := range in.Granted {
		if !t.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidConsent, "unknown consent type in granted set: "+t.String())
		}
		granted[t] = true
	}

	decision := &Decision{
		Bracket:          bracket,
		RequiredConsents: requirements,
		Retention:        e.retention.Resolve(bracket),
		Allowed:          true,
		EvaluatedAt:      in.Reference,
	}

	// Requirements arrive sorted most sensitive first, so the first miss is
	// the highest-priority one.
	for _, req := range requirements {
		if req.Required && !granted[req.ConsentType] {
			decision.Allowed = false
			decision.DenialReason = "missing " + req.ConsentType.String() + " for " + req.Category.String()
			break
		}
	}

	return decision, nil
}

// classify resolves the bracket from whichever age form the input carries.
func (e *Engine) classify(in EvaluateInput) (domain.ComplianceBracket, error) {
	switch {
	case in.Age.AgeYears != nil && in.Age.Birthdate != nil:
		return "", dErrors.New(dErrors.CodeInvalidAge, "supply either age or birthdate, not both")
	case in.Age.AgeYears != nil:
		return e.classifier.Classify(*in.Age.AgeYears)
	case in.Age.Birthdate != nil:
		return e.classifier.ClassifyFromBirthdate(*in.Age.Birthdate, in.Reference)
	default:
		return "", dErrors.New(dErrors.CodeInvalidAge, "age or birthdate is required")
	}
}

// RetentionFor exposes the retention policy for a bracket without running a
// full evaluation. Used by the conversation service to derive RetainUntil
// and by the policy matrix endpoint.
func (e *Engine) RetentionFor(bracket domain.ComplianceBracket) RetentionPolicy {
	return e.retention.Resolve(bracket)
}

// RequirementsFor exposes the consent matrix for a bracket, used by the
// policy inspection endpoint.
func (e *Engine) RequirementsFor(bracket domain.ComplianceBracket, categories []domain.DataCategory) ([]ConsentRequirement, error) {
	return e.consents.Resolve(bracket, categories)
}
