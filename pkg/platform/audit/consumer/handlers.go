package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "cubby/pkg/domain"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/audit/store/postgres"
)

// Materializer writes consumed events into the queryable audit table.
type Materializer interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

func materialize(ctx context.Context, store Materializer, msg Message, category audit.EventCategory) error {
	payload, err := decodePayload[postgres.OutboxPayload](msg)
	if err != nil {
		return err
	}

	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		return fmt.Errorf("parse event id %q: %w", payload.ID, err)
	}

	timestamp, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		return fmt.Errorf("parse event timestamp %q: %w", payload.Timestamp, err)
	}

	event := audit.Event{
		Category:  category,
		Timestamp: timestamp,
		Subject:   payload.Subject,
		Action:    payload.Action,
		Decision:  payload.Decision,
		Reason:    payload.Reason,
		RequestID: payload.RequestID,
		ActorID:   payload.ActorID,
	}
	if payload.ParentID != "" {
		parentID, err := uuid.Parse(payload.ParentID)
		if err != nil {
			return fmt.Errorf("parse parent id %q: %w", payload.ParentID, err)
		}
		event.ParentID = id.ParentID(parentID)
	}
	if payload.ChildID != "" {
		childID, err := uuid.Parse(payload.ChildID)
		if err != nil {
			return fmt.Errorf("parse child id %q: %w", payload.ChildID, err)
		}
		event.ChildID = id.ChildID(childID)
	}

	return store.AppendWithID(ctx, eventID, event)
}

// ComplianceHandler materializes compliance audit events. Compliance events
// are the legal evidence trail, so decode failures here are hard errors and
// get logged loudly by the consumer loop.
func ComplianceHandler(store Materializer) Handler {
	return HandlerFunc(func(ctx context.Context, msg Message) error {
		return materialize(ctx, store, msg, audit.CategoryCompliance)
	})
}

// SecurityHandler materializes security audit events.
func SecurityHandler(store Materializer) Handler {
	return HandlerFunc(func(ctx context.Context, msg Message) error {
		return materialize(ctx, store, msg, audit.CategorySecurity)
	})
}

// OpsHandler materializes operational audit events.
func OpsHandler(store Materializer) Handler {
	return HandlerFunc(func(ctx context.Context, msg Message) error {
		return materialize(ctx, store, msg, audit.CategoryOperations)
	})
}
