// Package authlockout implements the escalating login lockout: repeated
// failures inside a window lock the identifier out for increasing periods,
// and a day of sustained failures triggers a hard lock.
package authlockout

import (
	"context"
	"log/slog"
	"time"

	"cubby/internal/ratelimit/models"
	lockoutstore "cubby/internal/ratelimit/store/authlockout"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/middleware/metadata"
	"cubby/pkg/requestcontext"
)

// Policy holds the lockout thresholds.
type Policy struct {
	// AttemptsPerWindow failures inside WindowDuration trigger a lock.
	AttemptsPerWindow int
	WindowDuration    time.Duration
	// BaseLockDuration is the first lock; each further failure while the
	// window is saturated doubles it, up to MaxLockDuration.
	BaseLockDuration time.Duration
	MaxLockDuration  time.Duration
	// DailyHardLockThreshold failures within a day trigger a hard lock for
	// HardLockDuration.
	DailyHardLockThreshold int
	HardLockDuration       time.Duration
}

// DefaultPolicy returns the production lockout thresholds.
func DefaultPolicy() Policy {
	return Policy{
		AttemptsPerWindow:      5,
		WindowDuration:         15 * time.Minute,
		BaseLockDuration:       15 * time.Minute,
		MaxLockDuration:        time.Hour,
		DailyHardLockThreshold: 20,
		HardLockDuration:       24 * time.Hour,
	}
}

// SecurityPublisher emits buffered security audit events.
type SecurityPublisher interface {
	Emit(event audit.SecurityEvent)
}

// Service tracks login failures per identifier and answers lockout checks.
// It satisfies the parent service's LoginLockout interface.
type Service struct {
	store    lockoutstore.Store
	policy   Policy
	security SecurityPublisher
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSecurityPublisher enables lockout audit events.
func WithSecurityPublisher(p SecurityPublisher) Option {
	return func(s *Service) {
		s.security = p
	}
}

// WithPolicy overrides the default thresholds.
func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// New constructs a lockout service.
func New(store lockoutstore.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locked reports whether the identifier is currently locked out.
func (s *Service) Locked(ctx context.Context, identifier string) (bool, error) {
	state, err := s.store.Get(ctx, models.LockoutKey(identifier))
	if err != nil {
		return false, err
	}
	if state == nil {
		return false, nil
	}
	return state.LockedAt(requestcontext.Now(ctx)), nil
}

// RecordFailure counts one login failure and applies the lockout policy.
func (s *Service) RecordFailure(ctx context.Context, identifier string) error {
	key := models.LockoutKey(identifier)
	now := requestcontext.Now(ctx)

	state, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if state == nil {
		state = &models.LockoutState{DayStart: now}
	}

	if now.Sub(state.DayStart) >= 24*time.Hour {
		state.DailyFailures = 0
		state.DayStart = now
	}
	if !state.LastFailureAt.IsZero() && now.Sub(state.LastFailureAt) > s.policy.WindowDuration {
		state.FailureCount = 0
	}

	state.FailureCount++
	state.DailyFailures++
	state.LastFailureAt = now

	switch {
	case state.DailyFailures >= s.policy.DailyHardLockThreshold:
		until := now.Add(s.policy.HardLockDuration)
		state.LockedUntil = &until
		s.emitLockout(ctx, identifier, until, audit.SeverityCritical, "daily failure threshold reached")
	case state.FailureCount >= s.policy.AttemptsPerWindow:
		until := now.Add(s.lockDuration(state.FailureCount))
		state.LockedUntil = &until
		s.emitLockout(ctx, identifier, until, audit.SeverityWarning, "failure window saturated")
	}

	return s.store.Put(ctx, key, state)
}

// Reset clears failure accounting after a successful login.
func (s *Service) Reset(ctx context.Context, identifier string) error {
	return s.store.Clear(ctx, models.LockoutKey(identifier))
}

// lockDuration escalates: the base lock doubles for each failure past the
// window threshold, capped at the policy maximum.
func (s *Service) lockDuration(failures int) time.Duration {
	d := s.policy.BaseLockDuration
	for i := s.policy.AttemptsPerWindow; i < failures; i++ {
		d *= 2
		if d >= s.policy.MaxLockDuration {
			return s.policy.MaxLockDuration
		}
	}
	return d
}

func (s *Service) emitLockout(ctx context.Context, identifier string, until time.Time, severity audit.Severity, reason string) {
	ip := requestcontext.ClientIP(ctx)
	s.logger.WarnContext(ctx, "auth lockout triggered",
		"identifier", identifier,
		"ip_prefix", metadata.AnonymizeIP(ip),
		"locked_until", until,
		"reason", reason,
	)
	if s.security == nil {
		return
	}
	s.security.Emit(audit.SecurityEvent{
		Timestamp: requestcontext.Now(ctx),
		Subject:   identifier,
		Action:    string(audit.EventAuthLockoutStarted),
		Reason:    reason,
		IP:        ip,
		Device:    requestcontext.Device(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Severity:  severity,
	})
}
