// Package security provides the buffered, non-blocking audit publisher for
// security events.
//
// Emit never blocks the request path: events land in a bounded ring buffer
// and a background flusher drains them to the store in batches. When the
// buffer is full the oldest events are dropped and counted.
//
// Use for: parent_login_failed, auth_lockout_triggered, quota and rate
// limit violations.
package security

import (
	"context"
	"log/slog"
	"time"

	audit "cubby/pkg/platform/audit"
)

const (
	defaultFlushInterval = time.Second
	defaultFlushBatch    = 100
)

// Publisher emits security events through a ring buffer.
type Publisher struct {
	buffer *RingBuffer
	store  audit.Store
	logger *slog.Logger

	flushInterval time.Duration
	flushBatch    int
	done          chan struct{}
	stopped       chan struct{}
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithFlushInterval overrides how often the background flusher runs.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// WithFlushBatch overrides the maximum batch drained per flush.
func WithFlushBatch(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.flushBatch = n
		}
	}
}

// New creates a security publisher with a buffer of the given capacity.
// Call Run to start the background flusher and Close to drain and stop it.
func New(store audit.Store, logger *slog.Logger, capacity int, opts ...Option) *Publisher {
	p := &Publisher{
		buffer:        NewRingBuffer(capacity),
		store:         store,
		logger:        logger,
		flushInterval: defaultFlushInterval,
		flushBatch:    defaultFlushBatch,
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enqueues the event. Never blocks, never fails.
func (p *Publisher) Emit(event audit.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityInfo
	}
	p.buffer.Enqueue(event)
}

// Run drains the buffer until ctx is canceled, then performs a final flush.
func (p *Publisher) Run(ctx context.Context) error {
	defer close(p.stopped)

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.flush(context.Background())
			return ctx.Err()
		case <-p.done:
			p.flush(context.Background())
			return nil
		case <-ticker.C:
			p.flush(ctx)
		}
	}
}

// Close stops the flusher after a final drain.
func (p *Publisher) Close() error {
	close(p.done)
	<-p.stopped
	return nil
}

func (p *Publisher) flush(ctx context.Context) {
	for {
		batch := p.buffer.DequeueBatch(p.flushBatch)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			if err := p.store.Append(ctx, event.ToEvent()); err != nil {
				// Security events are best-effort; log and move on rather
				// than requeueing into a buffer that may already be hot.
				if p.logger != nil {
					p.logger.WarnContext(ctx, "security audit write failed",
						"action", event.Action,
						"error", err,
					)
				}
			}
		}
		if len(batch) < p.flushBatch {
			return
		}
	}
}

// Dropped reports how many events the buffer has discarded under pressure.
func (p *Publisher) Dropped() int64 {
	return p.buffer.Dropped()
}
