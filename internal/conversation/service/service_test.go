package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cubby/internal/compliance"
	compliancesvc "cubby/internal/compliance/service"
	"cubby/internal/conversation/models"
	"cubby/internal/conversation/store"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/audit"
	compliancepub "cubby/pkg/platform/audit/publishers/compliance"
	auditmem "cubby/pkg/platform/audit/store/memory"
	"cubby/pkg/requestcontext"
)

type fakeEvaluator struct {
	decision *compliance.Decision
	err      error
	lastReq  compliancesvc.EvaluateRequest
}

func (f *fakeEvaluator) Evaluate(_ context.Context, req compliancesvc.EvaluateRequest) (*compliance.Decision, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.decision, nil
}

type fakeVerifier struct {
	owner id.ParentID
	child id.ChildID
}

func (f *fakeVerifier) VerifyOwnership(_ context.Context, parentID id.ParentID, childID id.ChildID) error {
	if parentID == f.owner && childID == f.child {
		return nil
	}
	return dErrors.New(dErrors.CodeNotFound, "child not found")
}

type fakeQuota struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeQuota) Allow(context.Context, id.ChildID) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

func allowedDecision() *compliance.Decision {
	return &compliance.Decision{
		Bracket: id.BracketChild,
		Allowed: true,
		Retention: compliance.RetentionPolicy{
			MaxRetentionDays: 90,
			DeletionTrigger:  id.TriggerOnExpiry,
		},
	}
}

func deniedDecision(reason string) *compliance.Decision {
	return &compliance.Decision{
		Bracket:      id.BracketChild,
		Allowed:      false,
		DenialReason: reason,
		Retention: compliance.RetentionPolicy{
			MaxRetentionDays: 90,
			DeletionTrigger:  id.TriggerOnExpiry,
		},
	}
}

type ConversationServiceSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	store      *store.MemoryStore
	auditStore *auditmem.Store
	evaluator  *fakeEvaluator
	quota      *fakeQuota
	service    *Service
	parentID   id.ParentID
	childID    id.ChildID
}

func TestConversationServiceSuite(t *testing.T) {
	suite.Run(t, new(ConversationServiceSuite))
}

func (s *ConversationServiceSuite) SetupTest() {
	s.now = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.NewMemoryStore()
	s.auditStore = auditmem.New()
	s.evaluator = &fakeEvaluator{decision: allowedDecision()}
	s.quota = &fakeQuota{allowed: true}
	s.parentID = id.NewParentID()
	s.childID = id.NewChildID()
	s.service = New(s.store,
		s.evaluator,
		&fakeVerifier{owner: s.parentID, child: s.childID},
		compliancepub.New(s.auditStore),
		WithMessageQuota(s.quota),
	)
}

func (s *ConversationServiceSuite) start() *models.Conversation {
	conversation, err := s.service.Start(s.ctx, s.parentID, s.childID)
	s.Require().NoError(err)
	return conversation
}

func (s *ConversationServiceSuite) TestStart() {
	s.Run("allowed decision stamps retention terms", func() {
		conversation := s.start()

		s.Equal(s.childID, conversation.ChildID)
		s.Equal(s.now, conversation.StartedAt)
		s.Equal(s.now.AddDate(0, 0, 90), conversation.RetainUntil)
		s.True(conversation.DeleteOnExpiry)

		s.Equal([]id.DataCategory{id.CategoryVoiceRecording, id.CategoryUsageAnalytics},
			s.evaluator.lastReq.Categories)
	})

	s.Run("account-closure trigger leaves expiry deletion off", func() {
		s.evaluator.decision = &compliance.Decision{
			Bracket: id.BracketAdult,
			Allowed: true,
			Retention: compliance.RetentionPolicy{
				MaxRetentionDays: 365,
				DeletionTrigger:  id.TriggerOnAccountClosure,
			},
		}
		conversation := s.start()
		s.False(conversation.DeleteOnExpiry)
		s.Equal(s.now.AddDate(0, 0, 365), conversation.RetainUntil)
	})

	s.Run("denied decision surfaces the engine's reason", func() {
		s.evaluator.decision = deniedDecision("missing consent: verifiable_parental_consent")
		_, err := s.service.Start(s.ctx, s.parentID, s.childID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingConsent))
		s.Contains(err.Error(), "verifiable_parental_consent")

		conversations, storeErr := s.store.ListByChild(s.ctx, s.childID)
		s.NoError(storeErr)
		s.Empty(conversations)
	})

	s.Run("evaluator failure blocks the start", func() {
		s.evaluator.err = errors.New("consent store down")
		_, err := s.service.Start(s.ctx, s.parentID, s.childID)
		s.Error(err)
	})
}

func (s *ConversationServiceSuite) TestAppend() {
	conversation := s.start()

	s.Run("records both roles and bumps counters", func() {
		_, err := s.service.Append(s.ctx, s.parentID, conversation.ID, models.RoleChild, "hello bear")
		s.Require().NoError(err)
		_, err = s.service.Append(s.ctx, s.parentID, conversation.ID, models.RoleCompanion, "hello friend")
		s.Require().NoError(err)

		got, messages, err := s.service.Get(s.ctx, s.parentID, conversation.ID)
		s.Require().NoError(err)
		s.Equal(2, got.MessageCount)
		s.Require().Len(messages, 2)
		s.Equal(models.RoleChild, messages[0].Role)
		s.Equal("hello bear", messages[0].Content)
	})

	s.Run("quota counts child turns only", func() {
		before := s.quota.calls
		_, err := s.service.Append(s.ctx, s.parentID, conversation.ID, models.RoleCompanion, "still here")
		s.Require().NoError(err)
		s.Equal(before, s.quota.calls)

		_, err = s.service.Append(s.ctx, s.parentID, conversation.ID, models.RoleChild, "tell me a story")
		s.Require().NoError(err)
		s.Equal(before+1, s.quota.calls)
	})

	s.Run("exhausted quota refuses child turns", func() {
		s.quota.allowed = false
		_, err := s.service.Append(s.ctx, s.parentID, conversation.ID, models.RoleChild, "one more")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.quota.allowed = true
	})

	s.Run("quota backend failure admits the turn", func() {
		// Justification: quota protects against runaway usage, not data
		// collection; a degraded Redis must not take conversations down.
		s.quota.err = errors.New("redis timeout")
		_, err := s.service.Append(s.ctx, s.parentID, conversation.ID, models.RoleChild, "are you there")
		s.NoError(err)
		s.quota.err = nil
	})

	s.Run("unknown conversation", func() {
		_, err := s.service.Append(s.ctx, s.parentID, id.NewConversationID(), models.RoleChild, "hi")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("foreign parent sees not found", func() {
		_, err := s.service.Append(s.ctx, id.NewParentID(), conversation.ID, models.RoleChild, "hi")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ConversationServiceSuite) TestRetentionExpiry() {
	conversation := s.start()

	// Move the clock past the retain-until date.
	later := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, 91))

	s.Run("expired conversation is not served", func() {
		_, _, err := s.service.Get(later, s.parentID, conversation.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		conversations, err := s.service.ListByChild(later, s.parentID, s.childID)
		s.Require().NoError(err)
		s.Empty(conversations)
	})

	s.Run("expired conversation refuses new turns", func() {
		_, err := s.service.Append(later, s.parentID, conversation.ID, models.RoleChild, "hello?")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("still served just before expiry", func() {
		almost := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, 89))
		_, _, err := s.service.Get(almost, s.parentID, conversation.ID)
		s.NoError(err)
	})
}

func (s *ConversationServiceSuite) TestErase() {
	first := s.start()
	_, err := s.service.Append(s.ctx, s.parentID, first.ID, models.RoleChild, "hi")
	s.Require().NoError(err)
	s.start()

	s.Run("removes all conversations and audits the erasure", func() {
		ctx := requestcontext.WithParentID(s.ctx, s.parentID)
		erased, err := s.service.Erase(ctx, s.parentID, s.childID)
		s.Require().NoError(err)
		s.Equal(2, erased)

		conversations, err := s.store.ListByChild(s.ctx, s.childID)
		s.Require().NoError(err)
		s.Empty(conversations)

		events := s.auditStore.Events()
		s.Require().NotEmpty(events)
		last := events[len(events)-1]
		s.Equal(string(audit.EventConversationErased), last.Action)
		s.True(strings.Contains(last.Reason, "conversations_erased=2"))
	})

	s.Run("foreign parent cannot erase", func() {
		_, err := s.service.Erase(s.ctx, id.NewParentID(), s.childID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("system erasure without a parent context is attributed", func() {
		s.start()
		erased, err := s.service.EraseByChild(s.ctx, s.childID)
		s.Require().NoError(err)
		s.Equal(1, erased)

		events := s.auditStore.Events()
		last := events[len(events)-1]
		s.Equal("system", last.ActorID)
	})
}
