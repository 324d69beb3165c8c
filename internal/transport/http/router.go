// Package httptransport assembles the HTTP surface: the middleware chain,
// the public and parent-scoped route groups, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	childrenhandler "cubby/internal/children/handler"
	compliancehandler "cubby/internal/compliance/handler"
	consenthandler "cubby/internal/consent/handler"
	conversationhandler "cubby/internal/conversation/handler"
	parenthandler "cubby/internal/parent/handler"
	rlmiddleware "cubby/internal/ratelimit/middleware"
	"cubby/internal/ratelimit/models"
	"cubby/pkg/platform/httputil"
	"cubby/pkg/platform/middleware/auth"
	"cubby/pkg/platform/middleware/device"
	"cubby/pkg/platform/middleware/metadata"
	"cubby/pkg/platform/middleware/requesttime"
	"cubby/pkg/requestcontext"
)

// Handlers collects the feature handlers the router mounts.
type Handlers struct {
	Parent       *parenthandler.Handler
	Children     *childrenhandler.Handler
	Consent      *consenthandler.Handler
	Compliance   *compliancehandler.Handler
	Conversation *conversationhandler.Handler
}

// Config carries the cross-cutting pieces of the router.
type Config struct {
	Logger    *slog.Logger
	Verifier  auth.Verifier
	RateLimit *rlmiddleware.Middleware
	// Ready reports whether downstream dependencies are reachable; nil
	// means always ready.
	Ready func(ctx context.Context) error
	// Throttle caps in-flight requests; zero disables the cap.
	Throttle int
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(cfg Config, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(propagateRequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.RequestTime)
	r.Use(device.DeviceInfo)
	r.Use(requestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	if cfg.Throttle > 0 {
		r.Use(chimw.Throttle(cfg.Throttle))
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady(cfg.Ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public: registration and login, behind the tight auth budget.
	r.Group(func(r chi.Router) {
		r.Use(cfg.RateLimit.Limit(models.ClassAuth))
		h.Parent.RegisterPublic(r)
	})

	// Parent-scoped: everything else requires a Bearer token.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireParent(cfg.Verifier))

		r.Group(func(r chi.Router) {
			r.Use(cfg.RateLimit.Limit(models.ClassSensitive))
			h.Consent.Register(r)
			h.Compliance.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.RateLimit.Limit(models.ClassWrite))
			h.Parent.RegisterProtected(r)
			h.Children.Register(r)
			h.Conversation.Register(r)
		})
	})

	return r
}

// propagateRequestID copies chi's request ID into the request context the
// services and audit events read from.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger emits one structured log line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", requestcontext.RequestID(r.Context()),
			)
		})
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"reason": err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
