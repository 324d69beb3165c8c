package compliance

import (
	"cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

// RetentionPolicy is the engine's answer to "how long may collected data
// live, and what makes it go away".
type RetentionPolicy struct {
	MaxRetentionDays int                    `json:"max_retention_days"`
	DeletionTrigger  domain.DeletionTrigger `json:"deletion_trigger"`
}

// RetentionConfig carries the configured retention limits. Injected at
// construction; the resolver never consults globals.
type RetentionConfig struct {
	// ChildRetentionDays caps retention for the CHILD bracket. Default 90.
	ChildRetentionDays int
	// StandardRetentionDays caps retention for TEEN and ADULT. Default 365.
	StandardRetentionDays int
}

// DefaultRetentionConfig returns the shipped limits.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		ChildRetentionDays:    90,
		StandardRetentionDays: 365,
	}
}

// Validate enforces the non-negotiable invariant: retention for minors is
// stricter-or-equal, never looser.
//
// Errors: CodeInvalidPolicyConfig on any violation. Construction fails fast
// so the engine can never run with a non-compliant policy.
func (c RetentionConfig) Validate() error {
	if c.ChildRetentionDays < 1 {
		return dErrors.Newf(dErrors.CodeInvalidPolicyConfig, "child retention must be at least 1 day, got %d", c.ChildRetentionDays)
	}
	if c.StandardRetentionDays < 1 {
		return dErrors.Newf(dErrors.CodeInvalidPolicyConfig, "standard retention must be at least 1 day, got %d", c.StandardRetentionDays)
	}
	if c.ChildRetentionDays > c.StandardRetentionDays {
		return dErrors.Newf(dErrors.CodeInvalidPolicyConfig,
			"child retention (%d days) must not exceed standard retention (%d days)",
			c.ChildRetentionDays, c.StandardRetentionDays)
	}
	return nil
}

// RetentionPolicyResolver maps a bracket to its retention policy. Pure
// domain logic - no I/O, no side effects.
type RetentionPolicyResolver struct {
	cfg RetentionConfig
}

// NewRetentionPolicyResolver validates the configuration and constructs the
// resolver.
func NewRetentionPolicyResolver(cfg RetentionConfig) (*RetentionPolicyResolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RetentionPolicyResolver{cfg: cfg}, nil
}

// Resolve returns the retention policy for the bracket. CHILD data expires
// on its own clock; everyone else's data lives until the account closes.
func (r *RetentionPolicyResolver) Resolve(bracket domain.ComplianceBracket) RetentionPolicy {
	if bracket == domain.BracketChild {
		return RetentionPolicy{
			MaxRetentionDays: r.cfg.ChildRetentionDays,
			DeletionTrigger:  domain.TriggerOnExpiry,
		}
	}
	return RetentionPolicy{
		MaxRetentionDays: r.cfg.StandardRetentionDays,
		DeletionTrigger:  domain.TriggerOnAccountClosure,
	}
}
