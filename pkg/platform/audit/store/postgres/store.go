// Package postgres implements the audit store on the transactional outbox
// pattern. Events are written to the outbox table in the caller's
// transaction when one is present in context, so a consent grant and its
// audit record commit or roll back together. The outbox relay publishes
// entries to Kafka; the consumer materializes them back into audit_events
// for querying.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "cubby/pkg/domain"
	audit "cubby/pkg/platform/audit"
	txcontext "cubby/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// OutboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event so the consumer can deserialize without a mapping layer.
type OutboxPayload struct {
	ID        string `json:"ID"`
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	ParentID  string `json:"ParentID,omitempty"`
	ChildID   string `json:"ChildID,omitempty"`
	Subject   string `json:"Subject"`
	Action    string `json:"Action"`
	Decision  string `json:"Decision,omitempty"`
	Reason    string `json:"Reason,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
	ActorID   string `json:"ActorID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// The eventCategories map is the source of truth; never trust the
	// category the caller set.
	category := audit.AuditEvent(event.Action).Category()

	payload := OutboxPayload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
	}
	if !event.ParentID.IsNil() {
		payload.ParentID = event.ParentID.String()
	}
	if !event.ChildID.IsNil() {
		payload.ChildID = event.ChildID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType, aggregateID := "audit", eventID.String()
	if !event.ChildID.IsNil() {
		aggregateType, aggregateID = "child", event.ChildID.String()
	} else if !event.ParentID.IsNil() {
		aggregateType, aggregateID = "parent", event.ParentID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, category, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		string(category),
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// AppendWithID inserts a materialized audit event with a specific ID. Used
// by the Kafka consumer; idempotent via ON CONFLICT DO NOTHING so replays
// are harmless.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, parent_id, child_id, subject, action,
			decision, reason, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	var parentID, childID *uuid.UUID
	if !event.ParentID.IsNil() {
		pid := uuid.UUID(event.ParentID)
		parentID = &pid
	}
	if !event.ChildID.IsNil() {
		cid := uuid.UUID(event.ChildID)
		childID = &cid
	}

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		parentID,
		childID,
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT category, timestamp, parent_id, child_id, subject, action,
		   decision, reason, request_id, actor_id
	FROM audit_events
`

// ListByChild returns the materialized events for a child, newest first.
func (s *Store) ListByChild(ctx context.Context, childID id.ChildID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE child_id = $1 ORDER BY timestamp DESC`, uuid.UUID(childID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the N most recent materialized events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// FetchOutbox returns up to limit unrelayed outbox entries, oldest first.
// Used by the relay.
func (s *Store) FetchOutbox(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, category, event_type, payload
		FROM outbox
		WHERE relayed_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Category, &e.EventType, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkRelayed stamps outbox entries as published.
func (s *Store) MarkRelayed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	idStrings := make([]string, len(ids))
	for i, entryID := range ids {
		idStrings[i] = entryID.String()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET relayed_at = $1 WHERE id = ANY($2::uuid[])`,
		time.Now(), pq.Array(idStrings))
	if err != nil {
		return fmt.Errorf("mark outbox relayed: %w", err)
	}
	return nil
}

// OutboxEntry is one unrelayed row from the outbox table.
type OutboxEntry struct {
	ID        uuid.UUID
	Category  string
	EventType string
	Payload   []byte
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			category string
			event    audit.Event
			parentID *uuid.UUID
			childID  *uuid.UUID
		)
		err := rows.Scan(
			&category,
			&event.Timestamp,
			&parentID,
			&childID,
			&event.Subject,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ActorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if parentID != nil {
			event.ParentID = id.ParentID(*parentID)
		}
		if childID != nil {
			event.ChildID = id.ChildID(*childID)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
