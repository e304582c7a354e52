package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-ledger/internal/domain/events"
	"care-ledger/internal/ports/remote"
)

func TestSnapshotStore_GetPut(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	_, err := s.Get(ctx, "care-ledger")
	assert.ErrorIs(t, err, events.ErrSnapshotNotFound)

	buf := []byte(`{"schema_version":2}`)
	require.NoError(t, s.Put(ctx, "care-ledger", buf))
	buf[0] = 'X' // el store no debe compartir el slice

	got, err := s.Get(ctx, "care-ledger")
	require.NoError(t, err)
	assert.Equal(t, `{"schema_version":2}`, string(got))
}

func TestRemoteStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewRemoteStore()

	first := remote.Event{ID: "e1", EventType: "FEED", Timestamp: "2025-12-22T10:00:00Z"}
	second := first
	second.EventType = "SLEEP"

	require.NoError(t, r.Upsert(ctx, first))
	require.NoError(t, r.Upsert(ctx, second))

	got, ok := r.Get("e1")
	require.True(t, ok)
	assert.Equal(t, "FEED", got.EventType)
	assert.Equal(t, 2, r.Calls("e1"))
	assert.Equal(t, []string{"e1"}, r.IDs())

	require.NoError(t, r.Delete(ctx, "e1"))
	require.NoError(t, r.Delete(ctx, "e1"))
	assert.Empty(t, r.IDs())

	assert.ErrorIs(t, r.Upsert(ctx, remote.Event{}), ErrInvalidEvent)
}

func TestRemoteStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRemoteStore()
	assert.ErrorIs(t, r.Upsert(ctx, remote.Event{ID: "e1"}), context.Canceled)
	assert.Zero(t, r.Calls("e1"))
}
