// Package handler wires compliance evaluation endpoints to the compliance
// service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cubby/internal/compliance"
	"cubby/internal/compliance/service"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/httputil"
	"cubby/pkg/requestcontext"
)

// Service defines the compliance operations the handler needs.
type Service interface {
	Evaluate(ctx context.Context, req service.EvaluateRequest) (*compliance.Decision, error)
	EvaluatePreview(ctx context.Context, req service.PreviewRequest) (*compliance.Decision, error)
	Policy() compliance.PolicyConfig
}

// Handler serves compliance endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a compliance handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the compliance endpoints. All require a parent token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/compliance/evaluate", h.HandleEvaluate)
	r.Post("/compliance/preview", h.HandlePreview)
	r.Get("/compliance/policies", h.HandlePolicies)
}

// HandleEvaluate handles POST /compliance/evaluate.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	parentID := requestcontext.ParentID(ctx)
	if parentID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision, err := h.service.Evaluate(ctx, service.EvaluateRequest{
		ParentID:   parentID,
		ChildID:    req.ParsedChildID(),
		Categories: req.ParsedCategories(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "compliance evaluation failed",
			"request_id", requestID,
			"child_id", req.ParsedChildID(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "compliance evaluated",
		"request_id", requestID,
		"child_id", req.ParsedChildID(),
		"allowed", decision.Allowed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

// HandlePreview handles POST /compliance/preview.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PreviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision, err := h.service.EvaluatePreview(ctx, service.PreviewRequest{
		Age:        req.ParsedAge(),
		Categories: req.ParsedCategories(),
		Granted:    req.ParsedGranted(),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

// HandlePolicies handles GET /compliance/policies.
func (h *Handler) HandlePolicies(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromPolicy(h.service.Policy()))
}
