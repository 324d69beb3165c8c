// Package quota enforces the per-child daily interaction cap. COPPA's data
// minimization expectation cuts both ways: the service should not collect
// unbounded transcript data even when consent is in place.
package quota

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"cubby/internal/ratelimit/models"
	"cubby/internal/ratelimit/store/bucket"
	id "cubby/pkg/domain"
	"cubby/pkg/platform/audit"
	"cubby/pkg/requestcontext"
)

const quotaWindow = 24 * time.Hour

// SecurityPublisher emits buffered security audit events.
type SecurityPublisher interface {
	Emit(event audit.SecurityEvent)
}

// Service counts a child's daily interactions against the configured cap.
// It satisfies the conversation service's MessageQuota interface.
type Service struct {
	buckets  bucket.Store
	limit    int
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

// WithSecurityPublisher enables quota violation audit events.
func WithSecurityPublisher(p SecurityPublisher) Option {
	return func(s *Service) {
		s.security = p
	}
}

// New constructs a quota service with the given daily limit.
func New(buckets bucket.Store, limit int, opts ...Option) *Service {
	s := &Service{
		buckets: buckets,
		limit:   limit,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow counts one interaction and reports whether the child is within the
// daily cap. Denied interactions are recorded as security events.
func (s *Service) Allow(ctx context.Context, childID id.ChildID) (bool, error) {
	result, err := s.buckets.Allow(ctx, models.QuotaKey(childID.String()), s.limit, quotaWindow)
	if err != nil {
		return false, err
	}
	if result.Allowed {
		return true, nil
	}

	s.logger.WarnContext(ctx, "child daily quota exceeded",
		"child_id", childID,
		"limit", s.limit,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.security != nil {
		s.security.Emit(audit.SecurityEvent{
			Timestamp: requestcontext.Now(ctx),
			Subject:   childID.String(),
			Action:    string(audit.EventQuotaExceeded),
			Reason:    "daily quota of " + strconv.Itoa(s.limit) + " reached",
			RequestID: requestcontext.RequestID(ctx),
			Severity:  audit.SeverityWarning,
		})
	}
	return false, nil
}
