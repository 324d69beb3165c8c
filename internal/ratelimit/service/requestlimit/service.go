// Package requestlimit enforces the per-IP request budgets by endpoint
// class.
package requestlimit

import (
	"context"
	"log/slog"

	"cubby/internal/ratelimit/metrics"
	"cubby/internal/ratelimit/models"
	"cubby/internal/ratelimit/store/bucket"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/middleware/metadata"
	"cubby/pkg/requestcontext"
)

// SecurityPublisher emits buffered security audit events.
type SecurityPublisher interface {
	Emit(event audit.SecurityEvent)
}

// Service checks per-IP request budgets.
type Service struct {
	buckets  bucket.Store
	limits   map[models.EndpointClass]models.ClassLimit
	security SecurityPublisher
	metrics  *metrics.Metrics
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

// WithSecurityPublisher enables rate limit violation audit events.
func WithSecurityPublisher(p SecurityPublisher) Option {
	return func(s *Service) {
		s.security = p
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLimits overrides the default class budgets.
func WithLimits(limits map[models.EndpointClass]models.ClassLimit) Option {
	return func(s *Service) {
		if len(limits) > 0 {
			s.limits = limits
		}
	}
}

// New constructs a request limit service.
func New(buckets bucket.Store, opts ...Option) *Service {
	s := &Service{
		buckets: buckets,
		limits:  models.DefaultClassLimits(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIP counts one request from ip against the class budget. Unknown
// classes fall back to the write budget, the most conservative default for
// a mutation.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, ok := s.limits[class]
	if !ok {
		limit = s.limits[models.ClassWrite]
	}

	result, err := s.buckets.Allow(ctx, models.RequestKey(class, ip), limit.Requests, limit.Window)
	if err != nil {
		s.metrics.Check(string(class), "error")
		return nil, err
	}

	if result.Allowed {
		s.metrics.Check(string(class), "allowed")
		return result, nil
	}

	s.metrics.Check(string(class), "denied")
	s.logger.WarnContext(ctx, "rate limit exceeded",
		"class", class,
		"ip_prefix", metadata.AnonymizeIP(ip),
		"limit", result.Limit,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.security != nil {
		s.security.Emit(audit.SecurityEvent{
			Timestamp: requestcontext.Now(ctx),
			Subject:   metadata.AnonymizeIP(ip),
			Action:    string(audit.EventRateLimitExceeded),
			Reason:    "class " + string(class) + " budget exhausted",
			IP:        ip,
			RequestID: requestcontext.RequestID(ctx),
			Severity:  audit.SeverityInfo,
		})
	}
	return result, nil
}
