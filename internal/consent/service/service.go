// Package service implements the parental-consent ledger: granting,
// revoking, and the active-consent lookup the compliance engine consumes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cubby/internal/consent/models"
	"cubby/internal/consent/store"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/sentinel"
	txcontext "cubby/pkg/platform/tx"
	"cubby/pkg/requestcontext"
)

// ChildVerifier confirms that a parent owns a child profile. Returns a
// not-found domain error otherwise.
type ChildVerifier interface {
	VerifyOwnership(ctx context.Context, parentID id.ParentID, childID id.ChildID) error
}

// CompliancePublisher emits fail-closed compliance audit events.
type CompliancePublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// StoreTx provides a transactional boundary around ledger mutations and
// their audit records. Postgres deployments pass tx.NewSQLRunner so both
// writes commit or roll back together; the default runs fn directly and the
// service compensates on audit failure.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates consent ledger operations.
type Service struct {
	grants     store.ConsentStore
	children   ChildVerifier
	compliance CompliancePublisher
	tx         StoreTx
	logger     *slog.Logger
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

// WithStoreTx sets the transactional boundary for ledger mutations.
func WithStoreTx(storeTx StoreTx) Option {
	return func(s *Service) {
		if storeTx != nil {
			s.tx = storeTx
		}
	}
}

// New constructs a consent service. The compliance publisher is mandatory:
// every ledger change is a regulatory event.
func New(grants store.ConsentStore, children ChildVerifier, compliance CompliancePublisher, opts ...Option) *Service {
	s := &Service{
		grants:     grants,
		children:   children,
		compliance: compliance,
		tx:         txcontext.Passthrough{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GrantInput carries the fields for a new consent grant.
type GrantInput struct {
	ChildID   id.ChildID
	Type      id.ConsentType
	Method    id.ConsentMethod
	ExpiresAt *time.Time
}

// Grant records a consent grant. The method must be strong enough for the
// consent type and the granting parent must own the child. Fails closed on
// audit errors: the grant is revoked again if its audit record cannot be
// written.
func (s *Service) Grant(ctx context.Context, parentID id.ParentID, in GrantInput) (*models.ConsentGrant, error) {
	if err := s.children.VerifyOwnership(ctx, parentID, in.ChildID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	grant, err := models.NewConsentGrant(id.NewConsentID(), in.ChildID, in.Type, in.Method, parentID, now, in.ExpiresAt)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.grants.Create(ctx, grant); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "record consent grant")
		}

		if err := s.emitCompliance(ctx, grant, audit.EventConsentGranted, string(grant.Method)); err != nil {
			// No audit record, no active grant. Under a database transaction
			// the rollback discards both writes; without one the revocation
			// keeps the ledger append-only while neutralizing the grant.
			if revokeErr := s.grants.Revoke(ctx, grant.ID, now); revokeErr != nil {
				s.logger.ErrorContext(ctx, "rollback of unaudited consent grant failed",
					"consent_id", grant.ID,
					"error", revokeErr,
				)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "consent granted",
		"consent_id", grant.ID,
		"child_id", grant.ChildID,
		"consent_type", grant.Type,
		"method", grant.Method,
		"request_id", requestcontext.RequestID(ctx),
	)
	return grant, nil
}

// Revoke stamps a grant as revoked. Already-revoked grants conflict rather
// than silently succeeding so callers notice double revocations.
func (s *Service) Revoke(ctx context.Context, parentID id.ParentID, consentID id.ConsentID) error {
	grant, err := s.grants.FindByID(ctx, consentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "consent grant not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load consent grant")
	}

	if err := s.children.VerifyOwnership(ctx, parentID, grant.ChildID); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.grants.Revoke(ctx, consentID, now); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "consent grant not found")
			case errors.Is(err, sentinel.ErrRevoked):
				return dErrors.New(dErrors.CodeConflict, "consent grant already revoked")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "revoke consent grant")
			}
		}
		return s.emitCompliance(ctx, grant, audit.EventConsentRevoked, "")
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "consent revoked",
		"consent_id", consentID,
		"child_id", grant.ChildID,
		"consent_type", grant.Type,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// List returns all ledger entries for a child, active or not.
func (s *Service) List(ctx context.Context, parentID id.ParentID, childID id.ChildID) ([]*models.ConsentGrant, error) {
	if err := s.children.VerifyOwnership(ctx, parentID, childID); err != nil {
		return nil, err
	}
	grants, err := s.grants.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consent grants")
	}
	return grants, nil
}

// ActiveTypes returns the set of consent types in force for a child at the
// given time. This is the granted set the compliance engine evaluates
// against. No ownership check: it is called by trusted internal services.
func (s *Service) ActiveTypes(ctx context.Context, childID id.ChildID, now time.Time) ([]id.ConsentType, error) {
	grants, err := s.grants.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consent grants")
	}

	seen := make(map[id.ConsentType]bool)
	var active []id.ConsentType
	for _, grant := range grants {
		if grant.Active(now) && !seen[grant.Type] {
			seen[grant.Type] = true
			active = append(active, grant.Type)
		}
	}
	return active, nil
}

func (s *Service) emitCompliance(ctx context.Context, grant *models.ConsentGrant, action audit.AuditEvent, reason string) error {
	return s.compliance.Emit(ctx, audit.ComplianceEvent{
		Timestamp: requestcontext.Now(ctx),
		ParentID:  grant.GrantedBy,
		ChildID:   grant.ChildID,
		Subject:   string(grant.Type),
		Action:    string(action),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}
