// Package models holds the rate limiting domain types: endpoint classes,
// check results, and lockout state.
package models

import (
	"time"
)

// EndpointClass categorizes endpoints for differentiated request limits.
type EndpointClass string

const (
	// ClassAuth covers login and registration.
	ClassAuth EndpointClass = "auth"
	// ClassSensitive covers consent changes, erasure, and profile deletion.
	ClassSensitive EndpointClass = "sensitive"
	// ClassRead covers list and get operations.
	ClassRead EndpointClass = "read"
	// ClassWrite covers general mutations.
	ClassWrite EndpointClass = "write"
)

// IsValid reports whether the endpoint class is a supported value.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassAuth, ClassSensitive, ClassRead, ClassWrite:
		return true
	}
	return false
}

// ClassLimit is the request budget for one endpoint class.
type ClassLimit struct {
	Requests int
	Window   time.Duration
}

// DefaultClassLimits returns the per-IP budgets by endpoint class.
func DefaultClassLimits() map[EndpointClass]ClassLimit {
	return map[EndpointClass]ClassLimit{
		ClassAuth:      {Requests: 10, Window: time.Minute},
		ClassSensitive: {Requests: 30, Window: time.Minute},
		ClassRead:      {Requests: 100, Window: time.Minute},
		ClassWrite:     {Requests: 50, Window: time.Minute},
	}
}

// RateLimitResult is the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, set when not allowed
	Degraded   bool      `json:"-"`                     // served by the in-memory fallback
}

// LockoutState tracks login failure accounting for one identifier.
type LockoutState struct {
	FailureCount  int        // failures in the current window
	DailyFailures int        // failures since the daily reset
	LockedUntil   *time.Time // set while a lock is in force
	LastFailureAt time.Time
	DayStart      time.Time // start of the daily accounting period
}

// LockedAt reports whether the identifier is locked at the given instant.
func (l *LockoutState) LockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}
