package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cubby/internal/children/store"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/audit/publishers/compliance"
	auditmem "cubby/pkg/platform/audit/store/memory"
)

type fakeEraser struct {
	erasedBy map[id.ChildID]int
	count    int
}

func (f *fakeEraser) EraseByChild(_ context.Context, childID id.ChildID) (int, error) {
	if f.erasedBy == nil {
		f.erasedBy = make(map[id.ChildID]int)
	}
	f.erasedBy[childID]++
	return f.count, nil
}

type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, audit.ComplianceEvent) error {
	return errors.New("audit store down")
}

type recordingStoreTx struct {
	runs int
}

func (r *recordingStoreTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.runs++
	return fn(ctx)
}

type ChildrenServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *store.MemoryStore
	auditStore *auditmem.Store
	eraser     *fakeEraser
	service    *Service
	parentID   id.ParentID
}

func TestChildrenServiceSuite(t *testing.T) {
	suite.Run(t, new(ChildrenServiceSuite))
}

func (s *ChildrenServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemoryStore()
	s.auditStore = auditmem.New()
	s.eraser = &fakeEraser{count: 3}
	s.service = New(s.store, compliance.New(s.auditStore),
		WithConversationEraser(s.eraser),
	)
	s.parentID = id.NewParentID()
}

func (s *ChildrenServiceSuite) birthdate(ageYears int) time.Time {
	return time.Now().UTC().AddDate(-ageYears, 0, -30)
}

func (s *ChildrenServiceSuite) TestRegister() {
	s.Run("creates profile and audits it", func() {
		child, err := s.service.Register(s.ctx, s.parentID, "Bean", s.birthdate(8))
		s.Require().NoError(err)
		s.Equal("Bean", child.Nickname)
		s.Equal(s.parentID, child.ParentID)

		events := s.auditStore.Events()
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventChildRegistered), events[0].Action)
		s.Equal(child.ID, events[0].ChildID)
	})

	s.Run("rejects future birthdate", func() {
		_, err := s.service.Register(s.ctx, s.parentID, "Bean", time.Now().AddDate(1, 0, 0))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAge))
	})

	s.Run("rejects empty nickname", func() {
		_, err := s.service.Register(s.ctx, s.parentID, "   ", s.birthdate(8))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("fails closed when audit write fails", func() {
		// Justification: a child profile without its registration audit
		// record must not exist.
		failing := New(s.store, failingPublisher{})

		_, err := failing.Register(s.ctx, s.parentID, "Bean", s.birthdate(8))
		s.Require().Error(err)

		children, err := s.store.ListByParent(s.ctx, s.parentID)
		s.Require().NoError(err)
		s.Empty(children, "profile rolled back")
	})

	s.Run("profile write and audit record share one boundary", func() {
		rec := &recordingStoreTx{}
		svc := New(s.store, compliance.New(s.auditStore), WithStoreTx(rec))

		child, err := svc.Register(s.ctx, s.parentID, "Pip", s.birthdate(8))
		s.Require().NoError(err)
		s.Equal(1, rec.runs)

		s.Require().NoError(svc.Delete(s.ctx, s.parentID, child.ID))
		s.Equal(2, rec.runs)
	})
}

func (s *ChildrenServiceSuite) TestOwnership() {
	child, err := s.service.Register(s.ctx, s.parentID, "Bean", s.birthdate(8))
	s.Require().NoError(err)

	otherParent := id.NewParentID()

	s.Run("cross-parent get reads as not found", func() {
		_, err := s.service.Get(s.ctx, otherParent, child.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("cross-parent delete reads as not found", func() {
		err := s.service.Delete(s.ctx, otherParent, child.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = s.service.Get(s.ctx, s.parentID, child.ID)
		s.NoError(err, "profile untouched")
	})

	s.Run("list only returns own children", func() {
		children, err := s.service.List(s.ctx, otherParent)
		s.Require().NoError(err)
		s.Empty(children)
	})
}

func (s *ChildrenServiceSuite) TestDelete() {
	child, err := s.service.Register(s.ctx, s.parentID, "Bean", s.birthdate(8))
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, s.parentID, child.ID))

	s.Run("profile is gone", func() {
		_, err := s.service.Get(s.ctx, s.parentID, child.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("conversations cascade erased", func() {
		s.Equal(1, s.eraser.erasedBy[child.ID])
	})

	s.Run("deletion audited with erasure count", func() {
		events := s.auditStore.Events()
		last := events[len(events)-1]
		s.Equal(string(audit.EventChildDeleted), last.Action)
		s.Contains(last.Reason, "conversations_erased=3")
	})
}
