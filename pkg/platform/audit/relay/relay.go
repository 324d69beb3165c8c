// Package relay moves audit events from the transactional outbox to Kafka.
//
// Events are written to the outbox in the same transaction as the state change
// they describe, then relayed here. This gives at-least-once delivery without
// coupling request handling to broker availability. Consumers deduplicate on
// event ID.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/audit/store/postgres"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultBatchSize    = 100
)

// OutboxSource reads and acknowledges pending outbox entries.
type OutboxSource interface {
	FetchOutbox(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkRelayed(ctx context.Context, ids []uuid.UUID) error
}

// Relay polls the outbox and publishes entries to per-category topics.
type Relay struct {
	source       OutboxSource
	client       *kgo.Client
	topicPrefix  string
	pollInterval time.Duration
	batchSize    int
	logger       *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPollInterval sets how often the outbox is polled.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithBatchSize sets the maximum entries fetched per poll.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// New creates a relay publishing to topics named <prefix>.<category>.
func New(source OutboxSource, client *kgo.Client, topicPrefix string, opts ...Option) *Relay {
	r := &Relay{
		source:       source,
		client:       client,
		topicPrefix:  topicPrefix,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Topics returns the topic names the relay publishes to.
func (r *Relay) Topics() []string {
	categories := []audit.EventCategory{
		audit.CategoryCompliance,
		audit.CategorySecurity,
		audit.CategoryOperations,
	}
	topics := make([]string, 0, len(categories))
	for _, c := range categories {
		topics = append(topics, r.topicFor(string(c)))
	}
	return topics
}

func (r *Relay) topicFor(category string) string {
	return r.topicPrefix + "." + category
}

// EnsureTopics creates the audit topics if they do not exist.
func (r *Relay) EnsureTopics(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(r.client)
	resps, err := adm.CreateTopics(ctx, partitions, replication, nil, r.Topics()...)
	if err != nil {
		return fmt.Errorf("create audit topics: %w", err)
	}
	for _, resp := range resps.Sorted() {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

// Run polls the outbox until ctx is canceled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox relay pass failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (r *Relay) relayOnce(ctx context.Context) error {
	entries, err := r.source.FetchOutbox(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("fetch outbox: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: r.topicFor(e.Category),
			Key:   []byte(e.ID.String()),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.EventType)},
			},
		})
	}

	results := r.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce audit records: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if err := r.source.MarkRelayed(ctx, ids); err != nil {
		// Records were produced; re-delivery on next pass is acceptable
		// because consumers deduplicate on event ID.
		return fmt.Errorf("mark relayed: %w", err)
	}

	r.logger.DebugContext(ctx, "relayed audit events", slog.Int("count", len(entries)))
	return nil
}
