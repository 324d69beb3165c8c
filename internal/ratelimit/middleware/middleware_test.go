package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubby/internal/ratelimit/models"
)

type stubLimiter struct {
	result *models.RateLimitResult
	err    error
}

func (s *stubLimiter) CheckIP(context.Context, string, models.EndpointClass) (*models.RateLimitResult, error) {
	return s.result, s.err
}

func serve(t *testing.T, limiter Limiter, opts ...Option) *httptest.ResponseRecorder {
	t.Helper()
	m := New(limiter, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	handler := m.Limit(models.ClassRead)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/children", nil))
	return rec
}

func TestAllowedRequestPassesWithHeaders(t *testing.T) {
	rec := serve(t, &stubLimiter{result: &models.RateLimitResult{
		Allowed:   true,
		Limit:     100,
		Remaining: 99,
		ResetAt:   time.Now().Add(time.Minute),
	}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Status"))
}

func TestDeniedRequestGets429(t *testing.T) {
	rec := serve(t, &stubLimiter{result: &models.RateLimitResult{
		Allowed:    false,
		Limit:      100,
		Remaining:  0,
		ResetAt:    time.Now().Add(30 * time.Second),
		RetryAfter: 30,
	}})

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}

func TestLimiterErrorFailsOpen(t *testing.T) {
	// Justification: the limiter protects the service; the service must
	// not become unavailable because the limiter is.
	rec := serve(t, &stubLimiter{err: errors.New("redis down")})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDegradedCheckMarksResponse(t *testing.T) {
	rec := serve(t, &stubLimiter{result: &models.RateLimitResult{
		Allowed:   true,
		Limit:     100,
		Remaining: 50,
		ResetAt:   time.Now().Add(time.Minute),
		Degraded:  true,
	}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", rec.Header().Get("X-RateLimit-Status"))
}

func TestDisabledSkipsChecks(t *testing.T) {
	rec := serve(t, &stubLimiter{err: errors.New("never called")}, WithDisabled(true))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
