package bucket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cubby/internal/ratelimit/models"
)

// FallbackStore wraps a primary (Redis) store with an in-memory fallback
// behind a circuit breaker. While the breaker is open every check is served
// from process memory and marked degraded; the primary is retried once the
// breaker half-closes.
type FallbackStore struct {
	primary  Store
	fallback Store
	breaker  *breaker
	logger   *slog.Logger
}

// NewFallbackStore wraps primary with an in-memory fallback.
func NewFallbackStore(primary Store, logger *slog.Logger) *FallbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{
		primary:  primary,
		fallback: NewMemoryStore(),
		breaker:  newBreaker(5, 3),
		logger:   logger,
	}
}

// Allow checks the primary store, degrading to the in-memory fallback on
// errors or while the breaker is open.
func (s *FallbackStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if !s.breaker.allowPrimary() {
		return s.degraded(ctx, key, limit, window)
	}

	result, err := s.primary.Allow(ctx, key, limit, window)
	if err != nil {
		if s.breaker.recordFailure() {
			s.logger.Warn("rate limit store circuit opened, serving from memory", "error", err)
		}
		return s.degraded(ctx, key, limit, window)
	}
	s.breaker.recordSuccess()
	return result, nil
}

// Reset clears both stores so a cleared key cannot reappear from the
// fallback after a failover.
func (s *FallbackStore) Reset(ctx context.Context, key string) error {
	if err := s.fallback.Reset(ctx, key); err != nil {
		return err
	}
	if s.breaker.isOpen() {
		return nil
	}
	return s.primary.Reset(ctx, key)
}

// Degraded reports whether checks are currently served from the fallback.
func (s *FallbackStore) Degraded() bool {
	return s.breaker.isOpen()
}

func (s *FallbackStore) degraded(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	result, err := s.fallback.Allow(ctx, key, limit, window)
	if err != nil {
		return nil, err
	}
	result.Degraded = true
	return result, nil
}

// breaker opens after consecutive primary failures and closes again after
// consecutive successes. Unlike a time-based breaker, the primary is probed
// on every call once open, so recovery is immediate.
type breaker struct {
	mu               sync.Mutex
	open             bool
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	lastProbe        time.Time
}

const probeInterval = 5 * time.Second

func newBreaker(failureThreshold, successThreshold int) *breaker {
	return &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
	}
}

// allowPrimary reports whether the next check may hit the primary store.
// While open, one probe per probeInterval is let through.
func (b *breaker) allowPrimary() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if time.Since(b.lastProbe) >= probeInterval {
		b.lastProbe = time.Now()
		return true
	}
	return false
}

// recordFailure returns true when this failure opened the circuit.
func (b *breaker) recordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.successes = 0
	if b.open {
		return false
	}
	if b.failures >= b.failureThreshold {
		b.open = true
		b.lastProbe = time.Now()
		return true
	}
	return false
}

func (b *breaker) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		b.successes++
		if b.successes >= b.successThreshold {
			b.open = false
			b.failures = 0
			b.successes = 0
		}
		return
	}
	b.failures = 0
}
