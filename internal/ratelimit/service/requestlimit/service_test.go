package requestlimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubby/internal/ratelimit/models"
	"cubby/internal/ratelimit/store/bucket"
	"cubby/pkg/platform/audit"
)

type capturingSecurity struct {
	events []audit.SecurityEvent
}

func (c *capturingSecurity) Emit(event audit.SecurityEvent) {
	c.events = append(c.events, event)
}

func TestCheckIPWithinBudget(t *testing.T) {
	service := New(bucket.NewMemoryStore(), WithLimits(map[models.EndpointClass]models.ClassLimit{
		models.ClassAuth:  {Requests: 3, Window: time.Minute},
		models.ClassWrite: {Requests: 5, Window: time.Minute},
	}))

	for i := 0; i < 3; i++ {
		result, err := service.CheckIP(context.Background(), "10.0.0.1", models.ClassAuth)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Limit)
	}
}

func TestCheckIPDeniesOverBudget(t *testing.T) {
	security := &capturingSecurity{}
	service := New(bucket.NewMemoryStore(),
		WithSecurityPublisher(security),
		WithLimits(map[models.EndpointClass]models.ClassLimit{
			models.ClassAuth:  {Requests: 1, Window: time.Minute},
			models.ClassWrite: {Requests: 5, Window: time.Minute},
		}),
	)

	result, err := service.CheckIP(context.Background(), "10.0.0.2", models.ClassAuth)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = service.CheckIP(context.Background(), "10.0.0.2", models.ClassAuth)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	require.Len(t, security.events, 1)
	assert.Equal(t, string(audit.EventRateLimitExceeded), security.events[0].Action)
	assert.Equal(t, audit.SeverityInfo, security.events[0].Severity)
	assert.Equal(t, "10.0.0.2", security.events[0].IP)
	// The subject is the anonymized prefix, not the raw address.
	assert.NotEqual(t, "10.0.0.2", security.events[0].Subject)
}

func TestClassesHaveIndependentBudgets(t *testing.T) {
	service := New(bucket.NewMemoryStore(), WithLimits(map[models.EndpointClass]models.ClassLimit{
		models.ClassAuth:  {Requests: 1, Window: time.Minute},
		models.ClassRead:  {Requests: 1, Window: time.Minute},
		models.ClassWrite: {Requests: 5, Window: time.Minute},
	}))

	result, err := service.CheckIP(context.Background(), "10.0.0.3", models.ClassAuth)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = service.CheckIP(context.Background(), "10.0.0.3", models.ClassAuth)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// The same IP still has its read budget.
	result, err = service.CheckIP(context.Background(), "10.0.0.3", models.ClassRead)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestUnknownClassUsesWriteBudget(t *testing.T) {
	service := New(bucket.NewMemoryStore(), WithLimits(map[models.EndpointClass]models.ClassLimit{
		models.ClassWrite: {Requests: 2, Window: time.Minute},
	}))

	for i := 0; i < 2; i++ {
		result, err := service.CheckIP(context.Background(), "10.0.0.4", models.EndpointClass("unmapped"))
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	result, err := service.CheckIP(context.Background(), "10.0.0.4", models.EndpointClass("unmapped"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

type failingBuckets struct{}

func (failingBuckets) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("store down")
}

func (failingBuckets) Reset(context.Context, string) error { return nil }

func TestStoreErrorSurfaces(t *testing.T) {
	service := New(failingBuckets{})

	_, err := service.CheckIP(context.Background(), "10.0.0.5", models.ClassRead)
	assert.Error(t, err)
}
