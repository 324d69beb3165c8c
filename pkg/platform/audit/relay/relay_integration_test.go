//go:build integration

package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "cubby/pkg/domain"
	"cubby/pkg/platform/audit"
	"cubby/pkg/platform/audit/consumer"
	"cubby/pkg/platform/audit/relay"
	"cubby/pkg/platform/audit/store/postgres"
	"cubby/pkg/testutil/containers"
)

// TestAuditPipelineRoundTrip drives the full path: publisher append to the
// outbox, relay to the broker, consumer materialization back into the
// queryable audit table.
func TestAuditPipelineRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := containers.GetManager()
	pg := mgr.GetPostgres(t)
	broker := mgr.GetRedpanda(t)

	require.NoError(t, pg.TruncateTables(ctx, "outbox", "audit_events"))

	store := postgres.New(pg.DB)

	// Unique prefix and group so reruns in one broker don't replay old
	// offsets into each other.
	runID := uuid.NewString()[:8]
	topicPrefix := "audit.e2e." + runID

	producer := broker.NewClient(t)
	auditRelay := relay.New(store, producer, topicPrefix,
		relay.WithPollInterval(100*time.Millisecond),
	)
	require.NoError(t, auditRelay.EnsureTopics(ctx, 1, 1))

	router := consumer.NewRouter()
	router.Register(topicPrefix+"."+string(audit.CategoryCompliance), consumer.ComplianceHandler(store))
	router.Register(topicPrefix+"."+string(audit.CategorySecurity), consumer.SecurityHandler(store))
	router.Register(topicPrefix+"."+string(audit.CategoryOperations), consumer.OpsHandler(store))

	groupClient := broker.NewClient(t,
		kgo.ConsumerGroup("audit-e2e-"+runID),
		kgo.ConsumeTopics(router.Topics()...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)

	go func() { _ = auditRelay.Run(ctx) }()
	go func() { _ = consumer.New(groupClient, router, nil).Run(ctx) }()

	parentID, childID := id.NewParentID(), id.NewChildID()
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		ParentID:  parentID,
		ChildID:   childID,
		Subject:   childID.String(),
		Action:    string(audit.EventConsentGranted),
		Reason:    "verified_parental_consent",
		RequestID: "req-e2e",
	}
	require.NoError(t, store.Append(ctx, event))

	require.Eventually(t, func() bool {
		events, err := store.ListByChild(ctx, childID)
		return err == nil && len(events) == 1
	}, 30*time.Second, 200*time.Millisecond, "event should be relayed and materialized")

	events, err := store.ListByChild(ctx, childID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, audit.CategoryCompliance, events[0].Category)
	require.Equal(t, string(audit.EventConsentGranted), events[0].Action)
	require.Equal(t, parentID, events[0].ParentID)

	// The outbox entry must be stamped relayed so the next pass skips it.
	entries, err := store.FetchOutbox(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}
