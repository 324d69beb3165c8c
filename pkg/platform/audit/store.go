package audit

import (
	"context"

	id "cubby/pkg/domain"
)

// Store persists audit events. The Postgres implementation appends to the
// transactional outbox; the in-memory implementation backs tests and dev.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByChild(ctx context.Context, childID id.ChildID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
