package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubby/internal/conversation/models"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/testutil"
)

type stubService struct {
	conversation *models.Conversation
	messages     []*models.Message
	message      *models.Message
	erased       int
	err          error

	startedChild id.ChildID
	erasedChild  id.ChildID
}

func (s *stubService) Start(_ context.Context, _ id.ParentID, childID id.ChildID) (*models.Conversation, error) {
	s.startedChild = childID
	return s.conversation, s.err
}

func (s *stubService) Append(context.Context, id.ParentID, id.ConversationID, models.Role, string) (*models.Message, error) {
	return s.message, s.err
}

func (s *stubService) Get(context.Context, id.ParentID, id.ConversationID) (*models.Conversation, []*models.Message, error) {
	return s.conversation, s.messages, s.err
}

func (s *stubService) ListByChild(context.Context, id.ParentID, id.ChildID) ([]*models.Conversation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.conversation == nil {
		return nil, nil
	}
	return []*models.Conversation{s.conversation}, nil
}

func (s *stubService) Erase(_ context.Context, _ id.ParentID, childID id.ChildID) (int, error) {
	s.erasedChild = childID
	return s.erased, s.err
}

func newTestRouter(service Service) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(service, logger).Register(r)
	return r
}

func sampleConversation(childID id.ChildID) *models.Conversation {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	return &models.Conversation{
		ID:             id.NewConversationID(),
		ChildID:        childID,
		StartedAt:      now,
		LastActivityAt: now,
		MessageCount:   0,
		RetainUntil:    now.AddDate(0, 0, 90),
		DeleteOnExpiry: true,
	}
}

func TestHandleStart(t *testing.T) {
	childID := id.NewChildID()
	service := &stubService{conversation: sampleConversation(childID)}
	router := newTestRouter(service)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/conversations", map[string]string{
		"child_id": childID.String(),
	})
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.Equal(t, childID, service.startedChild)

	resp := testutil.UnmarshalResponse[ConversationResponse](t, rr)
	assert.Equal(t, childID, resp.ChildID)
	assert.True(t, resp.DeleteOnExpiry)
	assert.Equal(t, 0, resp.MessageCount)
}

func TestHandleStartRequiresAuth(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/conversations", map[string]string{
		"child_id": id.NewChildID().String(),
	})

	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
}

func TestHandleStartRejectsBadChildID(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/conversations", map[string]string{
		"child_id": "not-a-uuid",
	})
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleStartSurfacesMissingConsent(t *testing.T) {
	service := &stubService{err: dErrors.New(dErrors.CodeMissingConsent, "voice_recording requires verified_parental_consent")}
	router := newTestRouter(service)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/conversations", map[string]string{
		"child_id": id.NewChildID().String(),
	})
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)
	testutil.AssertErrorCode(t, rr, string(dErrors.CodeMissingConsent))
}

func TestHandleAppend(t *testing.T) {
	childID := id.NewChildID()
	conv := sampleConversation(childID)
	message, err := models.NewMessage(conv.ID, models.RoleChild, "hello bear", conv.StartedAt)
	require.NoError(t, err)

	service := &stubService{message: message}
	router := newTestRouter(service)

	req := testutil.NewJSONRequest(t, http.MethodPost,
		"/conversations/"+conv.ID.String()+"/messages",
		map[string]string{"role": "child", "content": "hello bear"},
	)
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[MessageResponse](t, rr)
	assert.Equal(t, "child", resp.Role)
	assert.Equal(t, "hello bear", resp.Content)
}

func TestHandleAppendRejectsUnknownRole(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := testutil.NewJSONRequest(t, http.MethodPost,
		"/conversations/"+id.NewConversationID().String()+"/messages",
		map[string]string{"role": "narrator", "content": "hi"},
	)
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func TestHandleGetTranscript(t *testing.T) {
	childID := id.NewChildID()
	conv := sampleConversation(childID)
	msg, err := models.NewMessage(conv.ID, models.RoleCompanion, "hello friend", conv.StartedAt)
	require.NoError(t, err)

	service := &stubService{conversation: conv, messages: []*models.Message{msg}}
	router := newTestRouter(service)

	req := testutil.NewRequest(t, http.MethodGet, "/conversations/"+conv.ID.String())
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[TranscriptResponse](t, rr)
	require.NotNil(t, resp.Conversation)
	assert.Equal(t, conv.ID, resp.Conversation.ID)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "companion", resp.Messages[0].Role)
}

func TestHandleGetNotFound(t *testing.T) {
	service := &stubService{err: dErrors.New(dErrors.CodeNotFound, "conversation not found")}
	router := newTestRouter(service)

	req := testutil.NewRequest(t, http.MethodGet, "/conversations/"+id.NewConversationID().String())
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func TestHandleListByChild(t *testing.T) {
	childID := id.NewChildID()
	service := &stubService{conversation: sampleConversation(childID)}
	router := newTestRouter(service)

	req := testutil.NewRequest(t, http.MethodGet, "/children/"+childID.String()+"/conversations")
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[ConversationListResponse](t, rr)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, childID, resp.Conversations[0].ChildID)
}

func TestHandleErase(t *testing.T) {
	childID := id.NewChildID()
	service := &stubService{erased: 3}
	router := newTestRouter(service)

	req := testutil.NewRequest(t, http.MethodDelete, "/children/"+childID.String()+"/conversations")
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[EraseResponse](t, rr)
	assert.Equal(t, 3, resp.Erased)
	assert.Equal(t, childID, service.erasedChild)
}

func TestHandleEraseInternalErrorHidesDetail(t *testing.T) {
	service := &stubService{err: errors.New("audit store unreachable")}
	router := newTestRouter(service)

	req := testutil.NewRequest(t, http.MethodDelete,
		"/children/"+id.NewChildID().String()+"/conversations")
	req = testutil.AsParent(req, id.NewParentID())

	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	assert.NotContains(t, rr.Body.String(), "audit store unreachable")
}
