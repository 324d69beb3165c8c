package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cubby/internal/consent/store"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/audit/publishers/compliance"
	auditmem "cubby/pkg/platform/audit/store/memory"
)

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

type recordingStoreTx struct {
	runs int
}

func (r *recordingStoreTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.runs++
	return fn(ctx)
}

type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, audit.ComplianceEvent) error {
	return errors.New("audit store down")
}

type ConsentServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *store.MemoryStore
	auditStore *auditmem.Store
	service    *Service
	parentID   id.ParentID
	childID    id.ChildID
}

func TestConsentServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsentServiceSuite))
}

func (s *ConsentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemoryStore()
	s.auditStore = auditmem.New()
	s.parentID = id.NewParentID()
	s.childID = id.NewChildID()
	s.service = New(s.store,
		&fakeVerifier{owner: s.parentID, child: s.childID},
		compliance.New(s.auditStore),
	)
}

func (s *ConsentServiceSuite) grant(t id.ConsentType, m id.ConsentMethod) error {
	_, err := s.service.Grant(s.ctx, s.parentID, GrantInput{ChildID: s.childID, Type: t, Method: m})
	return err
}

func (s *ConsentServiceSuite) TestGrant() {
	s.Run("verifiable consent via credit card", func() {
		grant, err := s.service.Grant(s.ctx, s.parentID, GrantInput{
			ChildID: s.childID,
			Type:    id.ConsentVerifiableParental,
			Method:  id.MethodCreditCard,
		})
		s.Require().NoError(err)
		s.Equal(s.parentID, grant.GrantedBy)
		s.True(grant.Active(time.Now()))

		events := s.auditStore.Events()
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventConsentGranted), events[0].Action)
		s.Equal(string(id.ConsentVerifiableParental), events[0].Subject)
	})

	s.Run("verifiable consent rejects weak method", func() {
		// Justification: COPPA verifiable parental consent requires a
		// verification method, not just an email acknowledgment.
		err := s.grant(id.ConsentVerifiableParental, id.MethodEmailPlus)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidConsent))
	})

	s.Run("notice-level consent accepts email plus", func() {
		err := s.grant(id.ConsentParentalNotice, id.MethodEmailPlus)
		s.NoError(err)
	})

	s.Run("none is not grantable", func() {
		err := s.grant(id.ConsentNone, id.MethodCreditCard)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidConsent))
	})

	s.Run("cross-parent grant denied", func() {
		_, err := s.service.Grant(s.ctx, id.NewParentID(), GrantInput{
			ChildID: s.childID,
			Type:    id.ConsentParentalNotice,
			Method:  id.MethodEmailPlus,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ConsentServiceSuite) TestTransactionalBoundary() {
	s.Run("ledger write and audit record share one boundary", func() {
		rec := &recordingStoreTx{}
		svc := New(s.store,
			&fakeVerifier{owner: s.parentID, child: s.childID},
			compliance.New(s.auditStore),
			WithStoreTx(rec),
		)

		_, err := svc.Grant(s.ctx, s.parentID, GrantInput{
			ChildID: s.childID,
			Type:    id.ConsentParentalNotice,
			Method:  id.MethodEmailPlus,
		})
		s.Require().NoError(err)
		s.Equal(1, rec.runs)
	})

	s.Run("grant fails closed when audit write fails", func() {
		// Justification: a consent grant without its audit record must never
		// be in force.
		failing := New(s.store,
			&fakeVerifier{owner: s.parentID, child: s.childID},
			failingPublisher{},
		)

		_, err := failing.Grant(s.ctx, s.parentID, GrantInput{
			ChildID: s.childID,
			Type:    id.ConsentVerifiableParental,
			Method:  id.MethodCreditCard,
		})
		s.Require().Error(err)

		types, err := s.service.ActiveTypes(s.ctx, s.childID, time.Now())
		s.Require().NoError(err)
		s.Empty(types, "unaudited grant neutralized")
	})
}

func (s *ConsentServiceSuite) TestRevoke() {
	grant, err := s.service.Grant(s.ctx, s.parentID, GrantInput{
		ChildID: s.childID,
		Type:    id.ConsentVerifiableParental,
		Method:  id.MethodSignedForm,
	})
	s.Require().NoError(err)

	s.Run("revocation deactivates and audits", func() {
		s.Require().NoError(s.service.Revoke(s.ctx, s.parentID, grant.ID))

		stored, err := s.store.FindByID(s.ctx, grant.ID)
		s.Require().NoError(err)
		s.NotNil(stored.RevokedAt)
		s.False(stored.Active(time.Now()))

		events := s.auditStore.Events()
		last := events[len(events)-1]
		s.Equal(string(audit.EventConsentRevoked), last.Action)
	})

	s.Run("double revocation conflicts", func() {
		err := s.service.Revoke(s.ctx, s.parentID, grant.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown grant not found", func() {
		err := s.service.Revoke(s.ctx, s.parentID, id.NewConsentID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ConsentServiceSuite) TestActiveTypes() {
	now := time.Now()

	s.Run("empty ledger yields no types", func() {
		types, err := s.service.ActiveTypes(s.ctx, s.childID, now)
		s.Require().NoError(err)
		s.Empty(types)
	})

	s.Run("revoked and expired grants excluded", func() {
		granted, err := s.service.Grant(s.ctx, s.parentID, GrantInput{
			ChildID: s.childID,
			Type:    id.ConsentVerifiableParental,
			Method:  id.MethodCreditCard,
		})
		s.Require().NoError(err)

		expiry := now.Add(time.Minute)
		_, err = s.service.Grant(s.ctx, s.parentID, GrantInput{
			ChildID:   s.childID,
			Type:      id.ConsentParentalNotice,
			Method:    id.MethodEmailPlus,
			ExpiresAt: &expiry,
		})
		s.Require().NoError(err)

		types, err := s.service.ActiveTypes(s.ctx, s.childID, now)
		s.Require().NoError(err)
		s.ElementsMatch([]id.ConsentType{id.ConsentVerifiableParental, id.ConsentParentalNotice}, types)

		// Past the expiry, only the open-ended grant remains.
		types, err = s.service.ActiveTypes(s.ctx, s.childID, now.Add(time.Hour))
		s.Require().NoError(err)
		s.ElementsMatch([]id.ConsentType{id.ConsentVerifiableParental}, types)

		// After revocation, nothing remains.
		s.Require().NoError(s.service.Revoke(s.ctx, s.parentID, granted.ID))
		types, err = s.service.ActiveTypes(s.ctx, s.childID, now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.Empty(types)
	})

	s.Run("duplicate grants collapse to one type", func() {
		other := id.NewChildID()
		svc := New(s.store, &fakeVerifier{owner: s.parentID, child: other}, compliance.New(s.auditStore))

		for _, method := range []id.ConsentMethod{id.MethodCreditCard, id.MethodSignedForm} {
			_, err := svc.Grant(s.ctx, s.parentID, GrantInput{
				ChildID: other,
				Type:    id.ConsentVerifiableParental,
				Method:  method,
			})
			s.Require().NoError(err)
		}

		types, err := svc.ActiveTypes(s.ctx, other, now)
		s.Require().NoError(err)
		s.Equal([]id.ConsentType{id.ConsentVerifiableParental}, types)
	})
}
