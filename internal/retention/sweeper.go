// Package retention runs the background sweep that deletes conversation
// data past its retain-until date. Only transcripts marked delete-on-expiry
// are swept; on-request and account-closure deletions go through the
// erasure paths, and consent records are never swept at all.
package retention

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"cubby/pkg/platform/audit"
)

const (
	defaultInterval  = time.Hour
	defaultBatchSize = 500

	// sweeperActor attributes purge audit events: there is no parent
	// behind a scheduled sweep.
	sweeperActor = "retention-sweeper"
)

// Store deletes one batch of expired conversations, returning the count.
type Store interface {
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// CompliancePublisher records purges in the compliance trail.
type CompliancePublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Sweeper periodically purges expired conversation data.
type Sweeper struct {
	store      Store
	compliance CompliancePublisher
	logger     *slog.Logger
	metrics    *Metrics
	interval   time.Duration
	batchSize  int
}

// Option configures the Sweeper.
type Option func(*Sweeper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithInterval sets the sweep interval.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithBatchSize sets the per-pass deletion batch size.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// New constructs a retention sweeper.
func New(store Store, compliance CompliancePublisher, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:      store,
		compliance: compliance,
		logger:     slog.Default(),
		interval:   defaultInterval,
		batchSize:  defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps on the configured interval until ctx is cancelled. The first
// sweep is delayed by a random fraction of the interval so replicas started
// together do not contend over the same rows.
func (s *Sweeper) Run(ctx context.Context) {
	jitter := time.Duration(rand.Int63n(int64(s.interval)))
	s.logger.Info("retention sweeper started",
		"interval", s.interval,
		"batch_size", s.batchSize,
		"initial_delay", jitter,
	)

	timer := time.NewTimer(jitter)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-timer.C:
		}
		s.sweep(ctx)
		timer.Reset(s.interval)
	}
}

// Sweep runs one full pass, deleting batches until the store is drained.
// Returns the total number of conversations purged.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	total := 0
	for {
		n, err := s.store.DeleteExpired(ctx, now, s.batchSize)
		if err != nil {
			return total, err
		}
		total += n
		if n < s.batchSize {
			break
		}
	}
	if total == 0 {
		return 0, nil
	}

	err := s.compliance.Emit(ctx, audit.ComplianceEvent{
		Timestamp: now,
		Action:    string(audit.EventRetentionPurged),
		Reason:    "conversations_purged=" + strconv.Itoa(total),
		ActorID:   sweeperActor,
	})
	return total, err
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	purged, err := s.Sweep(ctx)
	if err != nil {
		s.metrics.SweepFailure()
		s.logger.ErrorContext(ctx, "retention sweep failed",
			"purged_before_failure", purged,
			"error", err,
		)
		return
	}
	s.metrics.Sweep()
	s.metrics.Purged(purged)
	s.metrics.ObserveSweep(time.Since(start).Seconds())
	if purged > 0 {
		s.logger.InfoContext(ctx, "retention sweep purged expired conversations",
			"purged", purged,
			"duration", time.Since(start),
		)
	}
}
