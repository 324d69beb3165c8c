// Package handler wires parent account endpoints to the parent service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cubby/internal/parent/models"
	"cubby/internal/parent/service"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/httputil"
	"cubby/pkg/requestcontext"
)

// Service defines the parent operations the handler needs.
type Service interface {
	Register(ctx context.Context, email, password string) (*models.Parent, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Get(ctx context.Context, parentID id.ParentID) (*models.Parent, error)
}

// Handler serves parent account endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a parent handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/parents/register", h.HandleRegister)
	r.Post("/parents/login", h.HandleLogin)
}

// RegisterProtected mounts endpoints requiring a parent token.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/parents/me", h.HandleMe)
}

// HandleRegister handles POST /parents/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	parent, err := h.service.Register(ctx, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromParent(parent))
}

// HandleLogin handles POST /parents/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		// Login failures are expected traffic; log at debug and let the
		// security publisher carry the signal.
		h.logger.DebugContext(ctx, "login rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromLogin(result))
}

// HandleMe handles GET /parents/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID := requestcontext.ParentID(ctx)
	if parentID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	parent, err := h.service.Get(ctx, parentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromParent(parent))
}
