// Package service implements child profile management, including the COPPA
// erasure path where deleting a profile also erases its conversation data.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"cubby/internal/children/models"
	"cubby/internal/children/store"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/sentinel"
	txcontext "cubby/pkg/platform/tx"
	"cubby/pkg/requestcontext"
)

// CompliancePublisher emits fail-closed compliance audit events.
type CompliancePublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// ConversationEraser removes all conversation data for a child. Wired to the
// conversation service so profile deletion cascades.
type ConversationEraser interface {
	EraseByChild(ctx context.Context, childID id.ChildID) (int, error)
}

// EraserFunc adapts a function to the ConversationEraser interface.
type EraserFunc func(ctx context.Context, childID id.ChildID) (int, error)

// EraseByChild calls f.
func (f EraserFunc) EraseByChild(ctx context.Context, childID id.ChildID) (int, error) {
	return f(ctx, childID)
}

// StoreTx provides a transactional boundary around profile mutations and
// their audit records. Postgres deployments pass tx.NewSQLRunner so both
// writes commit or roll back together; the default runs fn directly and the
// service compensates on audit failure.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates child profile operations.
type Service struct {
	children   store.ChildStore
	compliance CompliancePublisher
	eraser     ConversationEraser
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

// WithConversationEraser enables conversation cascade on profile deletion.
func WithConversationEraser(eraser ConversationEraser) Option {
	return func(s *Service) {
		s.eraser = eraser
	}
}

// WithStoreTx sets the transactional boundary for profile mutations.
func WithStoreTx(storeTx StoreTx) Option {
	return func(s *Service) {
		if storeTx != nil {
			s.tx = storeTx
		}
	}
}

// New constructs a children service. The compliance publisher is mandatory:
// profile creation and deletion are regulatory events.
func New(children store.ChildStore, compliance CompliancePublisher, opts ...Option) *Service {
	s := &Service{
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

// Register creates a child profile owned by the calling parent.
// Fails closed: if the compliance audit record cannot be written the
// profile is removed again and the call errors.
func (s *Service) Register(ctx context.Context, parentID id.ParentID, nickname string, birthdate time.Time) (*models.Child, error) {
	now := requestcontext.Now(ctx)

	child, err := models.NewChild(id.NewChildID(), parentID, nickname, birthdate, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.children.Create(ctx, child); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create child profile")
		}

		if err := s.emitCompliance(ctx, child, audit.EventChildRegistered, ""); err != nil {
			// No audit record, no profile. Under a database transaction the
			// rollback discards both writes; without one the delete
			// compensates.
			if delErr := s.children.Delete(ctx, child.ID); delErr != nil {
				s.logger.ErrorContext(ctx, "rollback of unaudited child profile failed",
					"child_id", child.ID,
					"error", delErr,
				)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "child profile registered",
		"child_id", child.ID,
		"parent_id", parentID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return child, nil
}

// Get loads a child profile, enforcing parent ownership. Profiles owned by
// other parents read as not found so the API never confirms their existence.
func (s *Service) Get(ctx context.Context, parentID id.ParentID, childID id.ChildID) (*models.Child, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "child not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load child profile")
	}
	if child.ParentID != parentID {
		return nil, dErrors.New(dErrors.CodeNotFound, "child not found")
	}
	return child, nil
}

// VerifyOwnership confirms the parent owns the child. Used by the consent
// and compliance services before acting on a child's behalf.
func (s *Service) VerifyOwnership(ctx context.Context, parentID id.ParentID, childID id.ChildID) error {
	_, err := s.Get(ctx, parentID, childID)
	return err
}

// List returns the calling parent's child profiles.
func (s *Service) List(ctx context.Context, parentID id.ParentID) ([]*models.Child, error) {
	children, err := s.children.ListByParent(ctx, parentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list child profiles")
	}
	return children, nil
}

// Delete removes a child profile and cascades erasure of its conversation
// data. The deletion is a regulatory event and fails closed on audit errors.
func (s *Service) Delete(ctx context.Context, parentID id.ParentID, childID id.ChildID) error {
	child, err := s.Get(ctx, parentID, childID)
	if err != nil {
		return err
	}

	// Conversation data lives behind a separate pool, so erasure cannot join
	// the profile transaction. It runs first: a failed erase must never leave
	// an audited deletion behind.
	erased := 0
	if s.eraser != nil {
		erased, err = s.eraser.EraseByChild(ctx, childID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "erase conversations")
		}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.children.Delete(ctx, childID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "child not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete child profile")
		}
		return s.emitCompliance(ctx, child, audit.EventChildDeleted,
			"conversations_erased="+strconv.Itoa(erased))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "child profile deleted",
		"child_id", childID,
		"parent_id", parentID,
		"conversations_erased", erased,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) emitCompliance(ctx context.Context, child *models.Child, action audit.AuditEvent, reason string) error {
	return s.compliance.Emit(ctx, audit.ComplianceEvent{
		Timestamp: requestcontext.Now(ctx),
		ParentID:  child.ParentID,
		ChildID:   child.ID,
		Subject:   child.ID.String(),
		Action:    string(action),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}
