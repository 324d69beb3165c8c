// Package handler wires consent ledger endpoints to the consent service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cubby/internal/consent/models"
	"cubby/internal/consent/service"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/httputil"
	"cubby/pkg/requestcontext"
)

// Service defines the consent operations the handler needs.
type Service interface {
	Grant(ctx context.Context, parentID id.ParentID, in service.GrantInput) (*models.ConsentGrant, error)
	Revoke(ctx context.Context, parentID id.ParentID, consentID id.ConsentID) error
	List(ctx context.Context, parentID id.ParentID, childID id.ChildID) ([]*models.ConsentGrant, error)
}

// Handler serves consent ledger endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a consent handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the consent endpoints. All require a parent token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/children/{childID}/consents", h.HandleGrant)
	r.Post("/children/{childID}/consents/revoke", h.HandleRevoke)
	r.Get("/children/{childID}/consents", h.HandleList)
}

func (h *Handler) requestIdentity(w http.ResponseWriter, r *http.Request) (id.ParentID, id.ChildID, bool) {
	parentID := requestcontext.ParentID(r.Context())
	if parentID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.ParentID{}, id.ChildID{}, false
	}
	childID, err := id.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ParentID{}, id.ChildID{}, false
	}
	return parentID, childID, true
}

// HandleGrant handles POST /children/{childID}/consents.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	parentID, childID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[GrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	grant, err := h.service.Grant(ctx, parentID, service.GrantInput{
		ChildID:   childID,
		Type:      req.ParsedType(),
		Method:    req.ParsedMethod(),
		ExpiresAt: req.ParsedExpiresAt(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "consent grant failed",
			"request_id", requestID,
			"child_id", childID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromGrant(grant, requestcontext.Now(ctx)))
}

// HandleRevoke handles POST /children/{childID}/consents/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	parentID, _, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Revoke(ctx, parentID, req.ParsedConsentID()); err != nil {
		h.logger.ErrorContext(ctx, "consent revocation failed",
			"request_id", requestID,
			"consent_id", req.ParsedConsentID(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /children/{childID}/consents.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, childID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	grants, err := h.service.List(ctx, parentID, childID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromGrants(grants, requestcontext.Now(ctx)))
}
