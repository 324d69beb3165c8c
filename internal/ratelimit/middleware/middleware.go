// Package middleware exposes the request limits as chi middleware. Checks
// fail open: a broken limiter must never take the API down with it.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"cubby/internal/ratelimit/models"
	"cubby/pkg/platform/httputil"
	"cubby/pkg/platform/middleware/metadata"
	"cubby/pkg/requestcontext"
)

// Limiter checks one request against a per-IP class budget.
type Limiter interface {
	CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error)
}

// Middleware applies per-class request limits.
type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

// Option configures the Middleware.
type Option func(*Middleware)

// WithDisabled turns rate limiting off entirely (tests and demos).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// New constructs the rate limit middleware.
func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit returns middleware enforcing the budget for one endpoint class.
func (m *Middleware) Limit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := m.limiter.CheckIP(ctx, ip, class)
			if err != nil {
				// Fail open.
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"class", class,
					"ip_prefix", metadata.AnonymizeIP(ip),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, result)
			if !result.Allowed {
				writeLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if result.Degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}

func writeLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limit_exceeded",
		"message":     "too many requests, slow down",
		"retry_after": result.RetryAfter,
	})
}
