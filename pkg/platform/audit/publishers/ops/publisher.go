// Package ops publishes operational audit events on a best-effort basis.
//
// Ops events (quota hits, rate-limit rejections, preview evaluations) are
// high-volume and low-stakes. The publisher samples them, persists
// asynchronously, and drops events outright when the audit store is unhealthy.
// It never blocks or fails the request path.
package ops

import (
	"context"
	"log/slog"
	"time"

	"cubby/pkg/platform/audit"
)

const persistTimeout = 5 * time.Second

// Publisher samples and persists operational audit events.
type Publisher struct {
	store   audit.Store
	sampler *Sampler
	breaker *CircuitBreaker
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		if cb != nil {
			p.breaker = cb
		}
	}
}

// NewPublisher creates an ops audit publisher.
func NewPublisher(store audit.Store, sampler *Sampler, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		sampler: sampler,
		breaker: NewCircuitBreaker(5, time.Minute),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Track offers an operational event to the publisher. Sampling decides whether
// it is recorded at all; persistence happens in a background goroutine. Track
// never returns an error and never blocks on the store.
func (p *Publisher) Track(ctx context.Context, ev audit.OpsEvent) {
	p.metrics.Tracked(ev.Action)

	if !p.sampler.ShouldSample(ev.Action) {
		return
	}
	p.metrics.Sampled(ev.Action)

	if !p.breaker.Allow() {
		p.metrics.BreakerDropped()
		p.metrics.BreakerState(true)
		return
	}
	p.metrics.BreakerState(false)

	event := ev.ToEvent()

	// Fire and forget. The parent context may be canceled when the request
	// finishes, so persistence gets its own deadline.
	go func() {
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()

		if err := p.store.Append(persistCtx, event); err != nil {
			p.breaker.RecordFailure()
			p.metrics.PersistFailure()
			p.metrics.BreakerState(p.breaker.IsOpen())
			p.logger.WarnContext(persistCtx, "ops audit event dropped",
				slog.String("action", event.Action),
				slog.String("error", err.Error()),
			)
			return
		}
		p.breaker.RecordSuccess()
	}()
}
