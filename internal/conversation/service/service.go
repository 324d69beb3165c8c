// Package service manages conversation transcripts under the compliance
// engine's authority. Starting a conversation requires an allowed decision
// for the data categories a conversation collects; the decision's retention
// policy is stamped onto the transcript at start time and drives later
// purging.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"cubby/internal/compliance"
	compliancesvc "cubby/internal/compliance/service"
	"cubby/internal/conversation/models"
	"cubby/internal/conversation/store"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/sentinel"
	"cubby/pkg/requestcontext"
)

// conversationCategories are the data categories a conversation collects:
// the child's voice and the usage patterns the transcript reveals.
var conversationCategories = []id.DataCategory{
	id.CategoryVoiceRecording,
	id.CategoryUsageAnalytics,
}

// ComplianceEvaluator answers whether data collection is permitted for a
// child right now. Wired to the compliance service.
type ComplianceEvaluator interface {
	Evaluate(ctx context.Context, req compliancesvc.EvaluateRequest) (*compliance.Decision, error)
}

// ChildVerifier confirms a child profile belongs to a parent.
type ChildVerifier interface {
	VerifyOwnership(ctx context.Context, parentID id.ParentID, childID id.ChildID) error
}

// MessageQuota enforces the per-child daily message cap.
type MessageQuota interface {
	Allow(ctx context.Context, childID id.ChildID) (bool, error)
}

// CompliancePublisher emits fail-closed compliance audit events.
type CompliancePublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// OpsPublisher tracks sampled operational audit events.
type OpsPublisher interface {
	Track(ctx context.Context, event audit.OpsEvent)
}

// Service orchestrates conversation lifecycle and transcript access.
type Service struct {
	conversations store.ConversationStore
	evaluator     ComplianceEvaluator
	children      ChildVerifier
	compliance    CompliancePublisher
	ops           OpsPublisher
	quota         MessageQuota
	logger        *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOpsPublisher enables sampled audit of conversation starts.
func WithOpsPublisher(p OpsPublisher) Option {
	return func(s *Service) {
		s.ops = p
	}
}

// WithMessageQuota enables the per-child daily message cap.
func WithMessageQuota(q MessageQuota) Option {
	return func(s *Service) {
		s.quota = q
	}
}

// New constructs a conversation service.
func New(
	conversations store.ConversationStore,
	evaluator ComplianceEvaluator,
	children ChildVerifier,
	compliancePub CompliancePublisher,
	opts ...Option,
) *Service {
	s := &Service{
		conversations: conversations,
		evaluator:     evaluator,
		children:      children,
		compliance:    compliancePub,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a conversation for a child. The compliance engine must allow
// collecting voice recordings and usage analytics for the child's bracket
// and consent state; a denial is returned verbatim so the parent knows what
// consent is missing. The decision's retention policy fixes the transcript's
// retain-until date at start time.
func (s *Service) Start(ctx context.Context, parentID id.ParentID, childID id.ChildID) (*models.Conversation, error) {
	decision, err := s.evaluator.Evaluate(ctx, compliancesvc.EvaluateRequest{
		ParentID:   parentID,
		ChildID:    childID,
		Categories: conversationCategories,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		reason := decision.DenialReason
		if reason == "" {
			reason = "conversation not permitted"
		}
		return nil, dErrors.New(dErrors.CodeMissingConsent, reason)
	}

	now := requestcontext.Now(ctx)
	conversation := &models.Conversation{
		ID:             id.NewConversationID(),
		ChildID:        childID,
		StartedAt:      now,
		LastActivityAt: now,
		RetainUntil:    now.AddDate(0, 0, decision.Retention.MaxRetentionDays),
		DeleteOnExpiry: decision.Retention.DeletionTrigger == id.TriggerOnExpiry,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create conversation")
	}

	if s.ops != nil {
		s.ops.Track(ctx, audit.OpsEvent{
			Subject:   conversation.ID.String(),
			Action:    string(audit.EventConversationStarted),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	s.logger.InfoContext(ctx, "conversation started",
		"conversation_id", conversation.ID,
		"child_id", childID,
		"retain_until", conversation.RetainUntil,
		"delete_on_expiry", conversation.DeleteOnExpiry,
		"request_id", requestcontext.RequestID(ctx),
	)
	return conversation, nil
}

// Append records one transcript turn. Child turns count against the daily
// message quota when one is configured; quota store failures are logged and
// the turn is admitted, so a degraded quota backend never silences the
// companion.
func (s *Service) Append(ctx context.Context, parentID id.ParentID, conversationID id.ConversationID, role models.Role, content string) (*models.Message, error) {
	now := requestcontext.Now(ctx)
	conversation, err := s.getOwned(ctx, parentID, conversationID, now)
	if err != nil {
		return nil, err
	}

	if role == models.RoleChild && s.quota != nil {
		allowed, err := s.quota.Allow(ctx, conversation.ChildID)
		if err != nil {
			s.logger.WarnContext(ctx, "message quota check failed, admitting turn",
				"child_id", conversation.ChildID, "error", err)
		} else if !allowed {
			return nil, dErrors.New(dErrors.CodeForbidden, "daily message quota exceeded")
		}
	}

	message, err := models.NewMessage(conversationID, role, content, now)
	if err != nil {
		return nil, err
	}
	if err := s.conversations.AppendMessage(ctx, message); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "conversation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "append message")
	}
	return message, nil
}

// Get returns a conversation and its transcript, ownership enforced.
func (s *Service) Get(ctx context.Context, parentID id.ParentID, conversationID id.ConversationID) (*models.Conversation, []*models.Message, error) {
	conversation, err := s.getOwned(ctx, parentID, conversationID, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.conversations.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "list messages")
	}
	return conversation, messages, nil
}

// ListByChild returns a child's conversations, ownership enforced. Expired
// transcripts awaiting the retention sweep are not served.
func (s *Service) ListByChild(ctx context.Context, parentID id.ParentID, childID id.ChildID) ([]*models.Conversation, error) {
	if err := s.children.VerifyOwnership(ctx, parentID, childID); err != nil {
		return nil, err
	}
	all, err := s.conversations.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list conversations")
	}
	now := requestcontext.Now(ctx)
	live := make([]*models.Conversation, 0, len(all))
	for _, c := range all {
		if !c.Expired(now) {
			live = append(live, c)
		}
	}
	return live, nil
}

// Erase removes all of a child's conversation data at the parent's request.
func (s *Service) Erase(ctx context.Context, parentID id.ParentID, childID id.ChildID) (int, error) {
	if err := s.children.VerifyOwnership(ctx, parentID, childID); err != nil {
		return 0, err
	}
	return s.EraseByChild(ctx, childID)
}

// EraseByChild removes all conversation data for a child and records the
// erasure in the compliance trail. Called directly on profile deletion, so
// ownership must already be established by the caller.
func (s *Service) EraseByChild(ctx context.Context, childID id.ChildID) (int, error) {
	erased, err := s.conversations.DeleteByChild(ctx, childID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "erase conversations")
	}

	event := audit.ComplianceEvent{
		Timestamp: requestcontext.Now(ctx),
		ParentID:  requestcontext.ParentID(ctx),
		ChildID:   childID,
		Subject:   childID.String(),
		Action:    string(audit.EventConversationErased),
		Reason:    "conversations_erased=" + strconv.Itoa(erased),
		RequestID: requestcontext.RequestID(ctx),
	}
	if event.ParentID.IsNil() {
		event.ActorID = "system"
	}
	if err := s.compliance.Emit(ctx, event); err != nil {
		// Data is already gone; surface the audit failure so the caller
		// retries the surrounding operation.
		return erased, err
	}

	s.logger.InfoContext(ctx, "conversations erased",
		"child_id", childID,
		"erased", erased,
		"request_id", requestcontext.RequestID(ctx),
	)
	return erased, nil
}

// getOwned loads a conversation and verifies the child behind it belongs to
// the parent. Missing, foreign, and retention-expired conversations are all
// reported as not found.
func (s *Service) getOwned(ctx context.Context, parentID id.ParentID, conversationID id.ConversationID, now time.Time) (*models.Conversation, error) {
	conversation, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "conversation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load conversation")
	}
	if err := s.children.VerifyOwnership(ctx, parentID, conversation.ChildID); err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "conversation not found")
	}
	if conversation.Expired(now) {
		return nil, dErrors.New(dErrors.CodeNotFound, "conversation not found")
	}
	return conversation, nil
}
