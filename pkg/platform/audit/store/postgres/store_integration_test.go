//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "cubby/pkg/domain"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/audit/store/postgres"
	"cubby/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.pg = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.pg.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	err := s.pg.TruncateTables(context.Background(), "outbox", "audit_events")
	s.Require().NoError(err)
}

func complianceEvent(parentID id.ParentID, childID id.ChildID) audit.Event {
	return audit.Event{
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		ParentID:  parentID,
		ChildID:   childID,
		Subject:   childID.String(),
		Action:    string(audit.EventDecisionMade),
		Decision:  "denied",
		Reason:    "missing verified_parental_consent",
		RequestID: "req-1",
	}
}

func (s *AuditStoreSuite) TestAppendWritesOutbox() {
	ctx := context.Background()
	parentID, childID := id.NewParentID(), id.NewChildID()

	s.Require().NoError(s.store.Append(ctx, complianceEvent(parentID, childID)))

	entries, err := s.store.FetchOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("compliance", entries[0].Category)
	s.Equal(string(audit.EventDecisionMade), entries[0].EventType)

	var payload postgres.OutboxPayload
	s.Require().NoError(json.Unmarshal(entries[0].Payload, &payload))
	s.Equal(childID.String(), payload.ChildID)
	s.Equal("denied", payload.Decision)

	// The category column comes from the event routing table, never the
	// caller's struct.
	s.Equal("compliance", payload.Category)
}

func (s *AuditStoreSuite) TestMarkRelayedDrainsOutbox() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, complianceEvent(id.NewParentID(), id.NewChildID())))
	s.Require().NoError(s.store.Append(ctx, complianceEvent(id.NewParentID(), id.NewChildID())))

	entries, err := s.store.FetchOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	s.Require().NoError(s.store.MarkRelayed(ctx, []uuid.UUID{entries[0].ID}))

	remaining, err := s.store.FetchOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(entries[1].ID, remaining[0].ID)
}

func (s *AuditStoreSuite) TestAppendWithIDIsIdempotent() {
	// Justification: the relay is at-least-once, so the consumer will
	// replay records after rebalances. Materializing the same event ID
	// twice must not duplicate rows.
	ctx := context.Background()
	eventID := uuid.New()
	parentID, childID := id.NewParentID(), id.NewChildID()
	event := complianceEvent(parentID, childID)
	event.Category = audit.CategoryCompliance

	s.Require().NoError(s.store.AppendWithID(ctx, eventID, event))
	s.Require().NoError(s.store.AppendWithID(ctx, eventID, event))

	events, err := s.store.ListByChild(ctx, childID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventDecisionMade), events[0].Action)
	s.Equal(parentID, events[0].ParentID)
}

func (s *AuditStoreSuite) TestListByChildFiltersAndOrders() {
	ctx := context.Background()
	childID := id.NewChildID()
	otherChild := id.NewChildID()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		event := complianceEvent(id.NewParentID(), childID)
		event.Category = audit.CategoryCompliance
		event.Timestamp = base.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.AppendWithID(ctx, uuid.New(), event))
	}
	foreign := complianceEvent(id.NewParentID(), otherChild)
	foreign.Category = audit.CategoryCompliance
	s.Require().NoError(s.store.AppendWithID(ctx, uuid.New(), foreign))

	events, err := s.store.ListByChild(ctx, childID)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	// Newest first.
	for i := 1; i < len(events); i++ {
		s.False(events[i].Timestamp.After(events[i-1].Timestamp))
	}
}

func (s *AuditStoreSuite) TestSystemActorEvents() {
	ctx := context.Background()
	childID := id.NewChildID()

	event := audit.Event{
		Category:  audit.CategoryCompliance,
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		ChildID:   childID,
		Subject:   childID.String(),
		Action:    string(audit.EventRetentionPurged),
		Reason:    "conversations_purged=4",
		ActorID:   "retention-sweeper",
	}
	s.Require().NoError(s.store.AppendWithID(ctx, uuid.New(), event))

	events, err := s.store.ListByChild(ctx, childID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.True(events[0].ParentID.IsNil())
	s.Equal("retention-sweeper", events[0].ActorID)
}
