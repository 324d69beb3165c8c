package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "cubby/pkg/domain"
	audit "cubby/pkg/platform/audit"
	"cubby/pkg/platform/audit/store/memory"
)

type failingStore struct {
	err error
}

func (f *failingStore) Append(context.Context, audit.Event) error { return f.err }
func (f *failingStore) ListByChild(context.Context, id.ChildID) ([]audit.Event, error) {
	return nil, nil
}
func (f *failingStore) ListRecent(context.Context, int) ([]audit.Event, error) { return nil, nil }

func validEvent() audit.ComplianceEvent {
	return audit.ComplianceEvent{
		ParentID: id.ParentID(uuid.New()),
		ChildID:  id.ChildID(uuid.New()),
		Action:   string(audit.EventConsentGranted),
		Decision: "granted",
	}
}

func TestEmit_PersistsEvent(t *testing.T) {
	store := memory.New()
	p := New(store)

	require.NoError(t, p.Emit(context.Background(), validEvent()))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, string(audit.EventConsentGranted), events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp defaulted")
}

func TestEmit_FailsClosedOnStoreError(t *testing.T) {
	// Justification: a consent grant without its audit record must not
	// exist. Store failures propagate so the caller aborts.
	storeErr := errors.New("connection refused")
	p := New(&failingStore{err: storeErr})

	err := p.Emit(context.Background(), validEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}

func TestEmit_RejectsIncompleteEvents(t *testing.T) {
	p := New(memory.New())

	t.Run("missing actor", func(t *testing.T) {
		ev := validEvent()
		ev.ParentID = id.ParentID{}
		ev.ActorID = ""
		assert.Error(t, p.Emit(context.Background(), ev))
	})

	t.Run("system actor accepted without parent", func(t *testing.T) {
		ev := validEvent()
		ev.ParentID = id.ParentID{}
		ev.ActorID = "retention-sweeper"
		assert.NoError(t, p.Emit(context.Background(), ev))
	})

	t.Run("missing action", func(t *testing.T) {
		ev := validEvent()
		ev.Action = ""
		assert.Error(t, p.Emit(context.Background(), ev))
	})
}
