// Package handler wires child profile endpoints to the children service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cubby/internal/children/models"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/httputil"
	"cubby/pkg/requestcontext"
)

// Service defines the child profile operations the handler needs.
type Service interface {
	Register(ctx context.Context, parentID id.ParentID, nickname string, birthdate time.Time) (*models.Child, error)
	Get(ctx context.Context, parentID id.ParentID, childID id.ChildID) (*models.Child, error)
	List(ctx context.Context, parentID id.ParentID) ([]*models.Child, error)
	Delete(ctx context.Context, parentID id.ParentID, childID id.ChildID) error
}

// Handler serves child profile endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a children handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the child profile endpoints. All require a parent token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/children", h.HandleRegister)
	r.Get("/children", h.HandleList)
	r.Get("/children/{childID}", h.HandleGet)
	r.Delete("/children/{childID}", h.HandleDelete)
}

func (h *Handler) parentID(w http.ResponseWriter, r *http.Request) (id.ParentID, bool) {
	parentID := requestcontext.ParentID(r.Context())
	if parentID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.ParentID{}, false
	}
	return parentID, true
}

func childIDParam(w http.ResponseWriter, r *http.Request) (id.ChildID, bool) {
	childID, err := id.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ChildID{}, false
	}
	return childID, true
}

// HandleRegister handles POST /children.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	parentID, ok := h.parentID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterChildRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	child, err := h.service.Register(ctx, parentID, req.Nickname, req.ParsedBirthdate())
	if err != nil {
		h.logger.ErrorContext(ctx, "child registration failed",
			"request_id", requestID,
			"parent_id", parentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromChild(child))
}

// HandleList handles GET /children.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	parentID, ok := h.parentID(w, r)
	if !ok {
		return
	}

	children, err := h.service.List(r.Context(), parentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromChildren(children))
}

// HandleGet handles GET /children/{childID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	parentID, ok := h.parentID(w, r)
	if !ok {
		return
	}
	childID, ok := childIDParam(w, r)
	if !ok {
		return
	}

	child, err := h.service.Get(r.Context(), parentID, childID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromChild(child))
}

// HandleDelete handles DELETE /children/{childID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, ok := h.parentID(w, r)
	if !ok {
		return
	}
	childID, ok := childIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, parentID, childID); err != nil {
		h.logger.ErrorContext(ctx, "child deletion failed",
			"request_id", requestcontext.RequestID(ctx),
			"child_id", childID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
