package ops

import (
	"sync"
	"time"
)

// CircuitBreaker sheds ops events while the audit store is unhealthy so a
// store outage cannot stall request handling. Openness is derived from a
// deadline: the circuit is open until openUntil, after which the next Allow
// closes it and resets the failure count.
type CircuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration

	failures  int
	openUntil time.Time
}

// NewCircuitBreaker creates a breaker that opens after threshold consecutive
// failures and stays open for cooldown.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a publish attempt may proceed. A breaker whose
// cooldown has elapsed closes on the way through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.openUntil.IsZero() {
		return true
	}
	if time.Now().Before(cb.openUntil) {
		return false
	}
	cb.openUntil = time.Time{}
	cb.failures = 0
	return true
}

// RecordSuccess closes the circuit and clears accumulated failures.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.openUntil = time.Time{}
}

// RecordFailure counts a failed publish; hitting the threshold opens the
// circuit for the cooldown period.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	if cb.failures >= cb.threshold {
		cb.openUntil = time.Now().Add(cb.cooldown)
	}
}

// IsOpen reports whether the circuit is currently shedding events.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return !cb.openUntil.IsZero() && time.Now().Before(cb.openUntil)
}
