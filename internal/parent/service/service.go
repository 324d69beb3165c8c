// Package service implements parent account registration and login.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cubby/internal/parent/models"
	"cubby/internal/parent/store"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/sentinel"
	"cubby/pkg/requestcontext"
)

// TokenIssuer mints access tokens for authenticated parents.
type TokenIssuer interface {
	IssueToken(parentID id.ParentID) (string, error)
	TTL() time.Duration
}

// LoginLockout guards against credential stuffing. Keys are normalized
// email addresses.
type LoginLockout interface {
	Locked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// SecurityPublisher emits security audit events (non-blocking).
type SecurityPublisher interface {
	Emit(event audit.SecurityEvent)
}

// OpsPublisher tracks operational audit events (sampled, fire-and-forget).
type OpsPublisher interface {
	Track(ctx context.Context, event audit.OpsEvent)
}

// LoginResult carries an issued token and its lifetime.
type LoginResult struct {
	Parent      *models.Parent
	AccessToken string
	ExpiresIn   int // seconds
}

// Service orchestrates parent registration and login.
type Service struct {
	parents  store.ParentStore
	tokens   TokenIssuer
	lockout  LoginLockout
	logger   *slog.Logger
	security SecurityPublisher
	ops      OpsPublisher
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

// WithLockout enables login lockout enforcement.
func WithLockout(lockout LoginLockout) Option {
	return func(s *Service) {
		s.lockout = lockout
	}
}

// WithSecurityPublisher enables security audit events.
func WithSecurityPublisher(p SecurityPublisher) Option {
	return func(s *Service) {
		s.security = p
	}
}

// WithOpsPublisher enables operational audit events.
func WithOpsPublisher(p OpsPublisher) Option {
	return func(s *Service) {
		s.ops = p
	}
}

// New constructs a parent service.
func New(parents store.ParentStore, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		parents: parents,
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a parent account. The email must be unused; the password
// is stored as a bcrypt hash only.
func (s *Service) Register(ctx context.Context, email, password string) (*models.Parent, error) {
	email = models.NormalizeEmail(email)
	if err := models.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := models.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	parent, err := models.NewParent(id.NewParentID(), email, string(hash), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.parents.Create(ctx, parent); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create parent")
	}

	s.trackOps(ctx, audit.OpsEvent{
		Subject: parent.ID.String(),
		Action:  string(audit.EventParentRegistered),
	})
	s.logger.InfoContext(ctx, "parent registered",
		"parent_id", parent.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return parent, nil
}

// Login verifies credentials and issues an access token. Failed attempts
// feed the lockout counter; a locked account rejects logins without even
// checking the password.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = models.NormalizeEmail(email)

	if s.lockout != nil {
		locked, err := s.lockout.Locked(ctx, email)
		if err != nil {
			// Lockout storage trouble must not take down login.
			s.logger.WarnContext(ctx, "lockout check failed", "error", err)
		} else if locked {
			s.emitSecurity(ctx, email, "account locked", audit.SeverityWarning)
			return nil, dErrors.New(dErrors.CodeForbidden, "account temporarily locked")
		}
	}

	parent, err := s.parents.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Same failure path as a wrong password so responses don't
			// reveal which emails are registered.
			return nil, s.failLogin(ctx, email, "unknown email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load parent")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(parent.PasswordHash), []byte(password)); err != nil {
		return nil, s.failLogin(ctx, email, "wrong password")
	}

	if s.lockout != nil {
		if err := s.lockout.Reset(ctx, email); err != nil {
			s.logger.WarnContext(ctx, "lockout reset failed", "error", err)
		}
	}

	tokenString, err := s.tokens.IssueToken(parent.ID)
	if err != nil {
		return nil, err
	}

	s.trackOps(ctx, audit.OpsEvent{
		Subject: parent.ID.String(),
		Action:  string(audit.EventParentTokenIssued),
	})
	return &LoginResult{
		Parent:      parent,
		AccessToken: tokenString,
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

// Get loads a parent account.
func (s *Service) Get(ctx context.Context, parentID id.ParentID) (*models.Parent, error) {
	parent, err := s.parents.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "parent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load parent")
	}
	return parent, nil
}

func (s *Service) failLogin(ctx context.Context, email, reason string) error {
	if s.lockout != nil {
		if err := s.lockout.RecordFailure(ctx, email); err != nil {
			s.logger.WarnContext(ctx, "lockout record failed", "error", err)
		}
	}
	s.emitSecurity(ctx, email, reason, audit.SeverityInfo)
	return dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
}

func (s *Service) emitSecurity(ctx context.Context, subject, reason string, severity audit.Severity) {
	if s.security == nil {
		return
	}
	s.security.Emit(audit.SecurityEvent{
		Timestamp: requestcontext.Now(ctx),
		Subject:   subject,
		Action:    string(audit.EventParentLoginFailed),
		Reason:    reason,
		IP:        requestcontext.ClientIP(ctx),
		Device:    requestcontext.Device(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Severity:  severity,
	})
}

func (s *Service) trackOps(ctx context.Context, event audit.OpsEvent) {
	if s.ops == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.ops.Track(ctx, event)
}
