// Package handler wires conversation endpoints to the conversation service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cubby/internal/conversation/models"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/httputil"
	"cubby/pkg/requestcontext"
)

// Service defines the conversation operations the handler needs.
type Service interface {
	Start(ctx context.Context, parentID id.ParentID, childID id.ChildID) (*models.Conversation, error)
	Append(ctx context.Context, parentID id.ParentID, conversationID id.ConversationID, role models.Role, content string) (*models.Message, error)
	Get(ctx context.Context, parentID id.ParentID, conversationID id.ConversationID) (*models.Conversation, []*models.Message, error)
	ListByChild(ctx context.Context, parentID id.ParentID, childID id.ChildID) ([]*models.Conversation, error)
	Erase(ctx context.Context, parentID id.ParentID, childID id.ChildID) (int, error)
}

// Handler serves conversation endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a conversation handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the conversation endpoints. All require a parent token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/conversations", h.HandleStart)
	r.Post("/conversations/{conversationID}/messages", h.HandleAppend)
	r.Get("/conversations/{conversationID}", h.HandleGet)
	r.Get("/children/{childID}/conversations", h.HandleListByChild)
	r.Delete("/children/{childID}/conversations", h.HandleErase)
}

func (h *Handler) parentID(w http.ResponseWriter, r *http.Request) (id.ParentID, bool) {
	parentID := requestcontext.ParentID(r.Context())
	if parentID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.ParentID{}, false
	}
	return parentID, true
}

func conversationIDParam(w http.ResponseWriter, r *http.Request) (id.ConversationID, bool) {
	conversationID, err := id.ParseConversationID(chi.URLParam(r, "conversationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ConversationID{}, false
	}
	return conversationID, true
}

func childIDParam(w http.ResponseWriter, r *http.Request) (id.ChildID, bool) {
	childID, err := id.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ChildID{}, false
	}
	return childID, true
}

// HandleStart handles POST /conversations.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	parentID, ok := h.parentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	conversation, err := h.service.Start(ctx, parentID, req.ParsedChildID())
	if err != nil {
		h.logger.ErrorContext(ctx, "conversation start refused",
			"request_id", requestID,
			"child_id", req.ParsedChildID(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromConversation(conversation))
}

// HandleAppend handles POST /conversations/{conversationID}/messages.
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	parentID, ok := h.parentID(w, r)
	if !ok {
		return
	}
	conversationID, ok := conversationIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AppendMessageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	message, err := h.service.Append(ctx, parentID, conversationID, req.ParsedRole(), req.Content)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromMessage(message))
}

// HandleGet handles GET /conversations/{conversationID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, ok := h.parentID(w, r)
	if !ok {
		return
	}
	conversationID, ok := conversationIDParam(w, r)
	if !ok {
		return
	}

	conversation, messages, err := h.service.Get(ctx, parentID, conversationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromTranscript(conversation, messages))
}

// HandleListByChild handles GET /children/{childID}/conversations.
func (h *Handler) HandleListByChild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, ok := h.parentID(w, r)
	if !ok {
		return
	}
	childID, ok := childIDParam(w, r)
	if !ok {
		return
	}

	conversations, err := h.service.ListByChild(ctx, parentID, childID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromConversations(conversations))
}

// HandleErase handles DELETE /children/{childID}/conversations.
func (h *Handler) HandleErase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	parentID, ok := h.parentID(w, r)
	if !ok {
		return
	}
	childID, ok := childIDParam(w, r)
	if !ok {
		return
	}

	erased, err := h.service.Erase(ctx, parentID, childID)
	if err != nil {
		h.logger.ErrorContext(ctx, "conversation erasure failed",
			"request_id", requestID,
			"child_id", childID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &EraseResponse{Erased: erased})
}
