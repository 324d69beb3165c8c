//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ChildReader,ConsentReader,CompliancePublisher,OpsPublisher

// Package service wraps the pure compliance engine for HTTP use: it gathers
// the child profile and active consents, runs the evaluation, and records
// the decision in the compliance audit trail.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"cubby/internal/children/models"
	"cubby/internal/compliance"
	"cubby/internal/compliance/metrics"
	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
	"cubby/pkg/platform/audit"
	"cubby/pkg/requestcontext"
)

// fetchTimeout bounds the concurrent child/consent fetch. Evaluation itself
// is pure and effectively instant.
const fetchTimeout = 3 * time.Second

// ChildReader loads a child profile with ownership enforcement.
type ChildReader interface {
	Get(ctx context.Context, parentID id.ParentID, childID id.ChildID) (*models.Child, error)
}

// ConsentReader returns the consent types in force for a child.
type ConsentReader interface {
	ActiveTypes(ctx context.Context, childID id.ChildID, now time.Time) ([]id.ConsentType, error)
}

// CompliancePublisher emits fail-closed compliance audit events.
type CompliancePublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// OpsPublisher tracks sampled operational audit events.
type OpsPublisher interface {
	Track(ctx context.Context, event audit.OpsEvent)
}

// EvaluateRequest is a child-bound evaluation: the age and granted consents
// come from stored records, never from the caller.
type EvaluateRequest struct {
	ParentID   id.ParentID
	ChildID    id.ChildID
	Categories []id.DataCategory
}

// PreviewRequest is an ad-hoc evaluation against explicit inputs. Nothing is
// fetched and nothing is persisted.
type PreviewRequest struct {
	Age        compliance.AgeInput
	Categories []id.DataCategory
	Granted    []id.ConsentType
}

// Service orchestrates compliance evaluations.
type Service struct {
	engine     *compliance.Engine
	policy     compliance.PolicyConfig
	children   ChildReader
	consents   ConsentReader
	compliance CompliancePublisher
	ops        OpsPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
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

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithOpsPublisher enables sampled audit of preview evaluations.
func WithOpsPublisher(p OpsPublisher) Option {
	return func(s *Service) {
		s.ops = p
	}
}

// New constructs a compliance service around a validated policy
// configuration. Fails fast on invalid policy, before the server can start
// answering with a broken rule set.
func New(
	policy compliance.PolicyConfig,
	children ChildReader,
	consents ConsentReader,
	compliancePub CompliancePublisher,
	opts ...Option,
) (*Service, error) {
	engine, err := compliance.NewEngine(policy)
	if err != nil {
		return nil, err
	}
	s := &Service{
		engine:     engine,
		policy:     policy,
		children:   children,
		consents:   consents,
		compliance: compliancePub,
		logger:     slog.Default(),
		tracer:     otel.Tracer("cubby/compliance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate runs a child-bound compliance evaluation. The child profile and
// active consents are fetched concurrently; the decision is audited
// fail-closed before it is returned, so every answer the API ever gave is
// in the trail.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*compliance.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.evaluate",
		trace.WithAttributes(attribute.String("child_id", req.ChildID.String())),
	)
	defer span.End()

	start := time.Now()
	now := requestcontext.Now(ctx)

	child, granted, err := s.gather(ctx, req, now)
	if err != nil {
		s.metrics.Evaluation("", "error")
		return nil, err
	}

	decision, err := s.engine.Evaluate(compliance.EvaluateInput{
		Age:        compliance.AgeInput{Birthdate: &child.Birthdate},
		Categories: req.Categories,
		Granted:    granted,
		Reference:  now,
	})
	if err != nil {
		s.metrics.Evaluation("", "error")
		return nil, err
	}

	outcome := "allowed"
	if !decision.Allowed {
		outcome = "denied"
	}
	span.SetAttributes(
		attribute.String("bracket", string(decision.Bracket)),
		attribute.String("outcome", outcome),
	)

	if err := s.compliance.Emit(ctx, audit.ComplianceEvent{
		Timestamp: now,
		ParentID:  req.ParentID,
		ChildID:   req.ChildID,
		Subject:   categoriesSubject(req.Categories),
		Action:    string(audit.EventDecisionMade),
		Decision:  outcome,
		Reason:    decision.DenialReason,
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		// Fail closed: an unauditable decision is not given out.
		s.metrics.Evaluation(string(decision.Bracket), "error")
		return nil, err
	}

	s.metrics.Evaluation(string(decision.Bracket), outcome)
	s.metrics.ObserveDuration(time.Since(start).Seconds())
	s.logger.InfoContext(ctx, "compliance decision",
		"child_id", req.ChildID,
		"bracket", decision.Bracket,
		"outcome", outcome,
		"reason", decision.DenialReason,
		"request_id", requestcontext.RequestID(ctx),
	)
	return decision, nil
}

// EvaluatePreview runs the engine against explicit inputs for policy
// inspection. Audited as a sampled ops event only.
func (s *Service) EvaluatePreview(ctx context.Context, req PreviewRequest) (*compliance.Decision, error) {
	decision, err := s.engine.Evaluate(compliance.EvaluateInput{
		Age:        req.Age,
		Categories: req.Categories,
		Granted:    req.Granted,
		Reference:  requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Preview()
	if s.ops != nil {
		s.ops.Track(ctx, audit.OpsEvent{
			Subject: string(decision.Bracket),
			Action:  string(audit.EventPreviewEvaluated),
		})
	}
	return decision, nil
}

// Policy returns the active policy configuration for inspection.
func (s *Service) Policy() compliance.PolicyConfig {
	return s.policy
}

// gather fetches the child profile and active consent set concurrently
// under a shared timeout.
func (s *Service) gather(ctx context.Context, req EvaluateRequest, now time.Time) (*models.Child, []id.ConsentType, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	var (
		child   *models.Child
		granted []id.ConsentType
	)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		var err error
		child, err = s.children.Get(gctx, req.ParentID, req.ChildID)
		return err
	})
	g.Go(func() error {
		var err error
		granted, err = s.consents.ActiveTypes(gctx, req.ChildID, now)
		return err
	})
	if err := g.Wait(); err != nil {
		if fetchCtx.Err() != nil && ctx.Err() == nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeTimeout, "evaluation data fetch timed out")
		}
		return nil, nil, err
	}
	return child, granted, nil
}

func categoriesSubject(categories []id.DataCategory) string {
	subject := ""
	for i, c := range categories {
		if i > 0 {
			subject += ","
		}
		subject += string(c)
	}
	return subject
}
