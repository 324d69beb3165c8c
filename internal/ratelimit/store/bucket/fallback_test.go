package bucket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubby/internal/ratelimit/models"
)

// flakyStore fails until healed.
type flakyStore struct {
	inner   Store
	failing bool
	calls   int
}

func (f *flakyStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	f.calls++
	if f.failing {
		return nil, errors.New("connection refused")
	}
	return f.inner.Allow(ctx, key, limit, window)
}

func (f *flakyStore) Reset(ctx context.Context, key string) error {
	if f.failing {
		return errors.New("connection refused")
	}
	return f.inner.Reset(ctx, key)
}

func TestFallbackServesFromMemoryDuringOutage(t *testing.T) {
	primary := &flakyStore{inner: NewMemoryStore(), failing: true}
	store := NewFallbackStore(primary, nil)
	ctx := context.Background()

	// Every failed primary check still yields an answer from memory.
	for i := 0; i < 10; i++ {
		result, err := store.Allow(ctx, "rl:read:1.2.3.4", 100, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.True(t, result.Degraded)
	}
	assert.True(t, store.Degraded())
}

func TestFallbackEnforcesLimitsWhileDegraded(t *testing.T) {
	// Justification: fail-open means surviving a store outage, not
	// suspending rate limiting entirely.
	primary := &flakyStore{inner: NewMemoryStore(), failing: true}
	store := NewFallbackStore(primary, nil)
	ctx := context.Background()

	var denied bool
	for i := 0; i < 6; i++ {
		result, err := store.Allow(ctx, "rl:auth:1.2.3.4", 5, time.Minute)
		require.NoError(t, err)
		if !result.Allowed {
			denied = true
		}
	}
	assert.True(t, denied)
}

func TestFallbackClosesAfterRecovery(t *testing.T) {
	primary := &flakyStore{inner: NewMemoryStore(), failing: true}
	store := NewFallbackStore(primary, nil)
	store.breaker.failureThreshold = 2
	store.breaker.successThreshold = 1
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Allow(ctx, "rl:read:probe", 100, time.Minute)
		require.NoError(t, err)
	}
	require.True(t, store.Degraded())

	// Heal the primary and force the next probe through.
	primary.failing = false
	store.breaker.mu.Lock()
	store.breaker.lastProbe = time.Now().Add(-2 * probeInterval)
	store.breaker.mu.Unlock()

	result, err := store.Allow(ctx, "rl:read:probe", 100, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.False(t, store.Degraded())
}

func TestFallbackStaysClosedOnHealthyPrimary(t *testing.T) {
	primary := &flakyStore{inner: NewMemoryStore()}
	store := NewFallbackStore(primary, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		result, err := store.Allow(ctx, "rl:read:healthy", 100, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Degraded)
	}
	assert.Equal(t, 10, primary.calls)
}
