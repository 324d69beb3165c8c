// Package bucket implements the rate limit counters: an in-memory sliding
// window for single-instance deployments and a Redis fixed window for
// distributed ones, with a circuit-breaking fallback between them.
package bucket

import (
	"context"
	"time"

	"cubby/internal/ratelimit/models"
)

// Store counts requests against a keyed budget.
type Store interface {
	// Allow records one request against the key's budget and reports
	// whether it fit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}
