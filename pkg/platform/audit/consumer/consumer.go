// Package consumer materializes relayed audit events into the query store.
//
// The relay delivers at-least-once, so handlers must be idempotent. Every
// handler writes through AppendWithID, which ignores duplicates by event ID.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a single audit record lifted off the wire.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	EventType string
}

// Handler processes messages for one topic.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Router dispatches messages to per-topic handlers.
type Router struct {
	handlers map[string]Handler
	fallback Handler
}

// NewRouter creates an empty router. Messages for unregistered topics go to
// the fallback, or are dropped with an error if no fallback is set.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds a handler to a topic.
func (r *Router) Register(topic string, h Handler) {
	r.handlers[topic] = h
}

// SetFallback sets the handler for unregistered topics.
func (r *Router) SetFallback(h Handler) {
	r.fallback = h
}

// Topics returns all registered topic names.
func (r *Router) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, t)
	}
	return topics
}

// Route dispatches a message to its topic handler.
func (r *Router) Route(ctx context.Context, msg Message) error {
	if h, ok := r.handlers[msg.Topic]; ok {
		return h.Handle(ctx, msg)
	}
	if r.fallback != nil {
		return r.fallback.Handle(ctx, msg)
	}
	return fmt.Errorf("no handler for topic %s", msg.Topic)
}

// Consumer runs a consumer-group poll loop over the audit topics.
type Consumer struct {
	client *kgo.Client
	router *Router
	logger *slog.Logger
}

// New creates a consumer. The client must already be configured with the
// consumer group and the router's topics.
func New(client *kgo.Client, router *Router, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{client: client, router: router, logger: logger}
}

// Run polls until ctx is canceled. Handler failures are logged and the record
// skipped; the relay's at-least-once delivery plus idempotent handlers make
// this safe.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "audit fetch error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.String("error", err.Error()),
			)
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			msg := Message{
				Topic:     rec.Topic,
				Key:       rec.Key,
				Value:     rec.Value,
				EventType: headerValue(rec, "event_type"),
			}
			if err := c.router.Route(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "audit event not materialized",
					slog.String("topic", rec.Topic),
					slog.String("event_id", string(rec.Key)),
					slog.String("error", err.Error()),
				)
			}
		})
	}
}

func headerValue(rec *kgo.Record, key string) string {
	for _, h := range rec.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func decodePayload[T any](msg Message) (T, error) {
	var payload T
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return payload, fmt.Errorf("decode audit payload: %w", err)
	}
	return payload, nil
}
