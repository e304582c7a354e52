package events

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-ledger/internal/domain/events/details"
)

// -------------------------
// Test store (in-memory)
// -------------------------

var errDiskFull = errors.New("store: disk full")

type testStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failPut bool
	puts    int
}

func newTestStore() *testStore {
	return &testStore{data: map[string][]byte{}}
}

func (s *testStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *testStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return errDiskFull
	}
	s.puts++
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *testStore) setFail(v bool) {
	s.mu.Lock()
	s.failPut = v
	s.mu.Unlock()
}

func (s *testStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// -------------------------
// Helpers
// -------------------------

var t0 = time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, store *testStore) *Ledger {
	t.Helper()
	now := t0
	var mu sync.Mutex
	l, err := OpenLedger(context.Background(), store, Options{
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(time.Second)
			return now
		},
	})
	require.NoError(t, err)
	return l
}

// -------------------------
// Tests
// -------------------------

func TestLedger_LogEvent_FeedVisibleAndUnsynced(t *testing.T) {
	l := newTestLedger(t, newTestStore())

	e, err := l.LogEvent(context.Background(), "parent-1", EventTypeFeed, details.Feed{AmountML: 120})
	require.NoError(t, err)

	feeds := l.ByType(EventTypeFeed)
	require.Len(t, feeds, 1)
	assert.Equal(t, e.ID, feeds[0].ID)
	assert.False(t, feeds[0].IsSynced)
	assert.Equal(t, details.Feed{AmountML: 120}, feeds[0].Metadata)
	assert.Equal(t, "parent-1", feeds[0].ActorID)
}

func TestLedger_LogEvent_IDsAreUnique(t *testing.T) {
	l := newTestLedger(t, newTestStore())

	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		e, err := l.LogEvent(context.Background(), "parent-1", EventTypeDiaper, details.Diaper{Kind: details.DiaperKindWet})
		require.NoError(t, err)
		_, dup := seen[e.ID]
		require.False(t, dup, "duplicate id %s", e.ID)
		seen[e.ID] = struct{}{}
	}
	assert.Equal(t, 200, l.Len())
}

func TestLedger_LogEvent_RejectsDuplicateID(t *testing.T) {
	store := newTestStore()
	l, err := OpenLedger(context.Background(), store, Options{NewID: func() string { return "fixed" }})
	require.NoError(t, err)

	_, err = l.LogEvent(context.Background(), "parent-1", EventTypeSleep, details.Sleep{DurationMinutes: 30})
	require.NoError(t, err)

	_, err = l.LogEvent(context.Background(), "parent-1", EventTypeSleep, details.Sleep{DurationMinutes: 30})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, l.Len())
}

func TestLedger_LogEvent_ValidationErrors(t *testing.T) {
	store := newTestStore()
	l := newTestLedger(t, store)

	cases := []struct {
		name  string
		actor string
		typ   EventType
		meta  Metadata
	}{
		{"missing actor", "", EventTypeFeed, details.Feed{AmountML: 10}},
		{"nil metadata", "p", EventTypeFeed, nil},
		{"mismatched type", "p", EventTypeFeed, details.Sleep{DurationMinutes: 20}},
		{"feed without amount or side", "p", EventTypeFeed, details.Feed{}},
		{"sleep without duration", "p", EventTypeSleep, details.Sleep{Location: "crib"}},
		{"unknown diaper kind", "p", EventTypeDiaper, details.Diaper{Kind: "blue"}},
		{"medication without name", "p", EventTypeMedication, details.Medication{Dose: 2}},
		{"unknown type", "p", EventType("BATH"), details.Solid{Food: "banana"}},
		{"infinite sleep", "p", EventTypeSleep, details.Sleep{DurationMinutes: math.Inf(1)}},
		{"NaN feed amount", "p", EventTypeFeed, details.Feed{AmountML: math.NaN()}},
		{"infinite feed duration", "p", EventTypeFeed, details.Feed{Side: details.FeedSideLeft, DurationMinutes: math.Inf(-1)}},
		{"NaN dose", "p", EventTypeMedication, details.Medication{Name: "paracetamol", Dose: math.NaN()}},
		{"infinite solid amount", "p", EventTypeSolid, details.Solid{Food: "pear", AmountGrams: math.Inf(1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.LogEvent(context.Background(), tc.actor, tc.typ, tc.meta)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.Zero(t, l.Len())
	assert.Zero(t, store.putCount(), "validation failures must never persist")
}

func TestLedger_NonFiniteMetadataDoesNotBlockPersistence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	l := newTestLedger(t, store)

	_, err := l.LogEvent(ctx, "p", EventTypeSleep, details.Sleep{DurationMinutes: math.Inf(1)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = l.LogEvent(ctx, "p", EventTypeDiaper, details.Diaper{Kind: details.DiaperKindWet})
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
	assert.False(t, l.Dirty())
	require.NoError(t, l.Persist(ctx))
}

func TestLedger_LogEvent_AcceptsPointerMetadata(t *testing.T) {
	l := newTestLedger(t, newTestStore())

	e, err := l.LogEvent(context.Background(), "p", EventTypeSolid, &details.Solid{Food: "avocado", AmountGrams: 15})
	require.NoError(t, err)
	assert.Equal(t, details.Solid{Food: "avocado", AmountGrams: 15}, e.Metadata)
}

func TestLedger_Events_TimestampDescending_InsertionPreserved(t *testing.T) {
	l := newTestLedger(t, newTestStore())
	ctx := context.Background()

	a, err := l.LogEventAt(ctx, "p", EventTypeSleep, details.Sleep{DurationMinutes: 40}, t0.Add(-3*time.Hour))
	require.NoError(t, err)
	b, err := l.LogEventAt(ctx, "p", EventTypeFeed, details.Feed{Side: details.FeedSideLeft}, t0.Add(-1*time.Hour))
	require.NoError(t, err)
	c, err := l.LogEventAt(ctx, "p", EventTypeDiaper, details.Diaper{Kind: details.DiaperKindDirty}, t0.Add(-2*time.Hour))
	require.NoError(t, err)

	display := l.Events()
	require.Len(t, display, 3)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, ids(display))

	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(l.InsertionOrder()))
}

func TestLedger_SyncComplete_Idempotent(t *testing.T) {
	store := newTestStore()
	l := newTestLedger(t, store)
	ctx := context.Background()

	e, err := l.LogEvent(ctx, "p", EventTypeFeed, details.Feed{AmountML: 90})
	require.NoError(t, err)

	require.NoError(t, l.SyncComplete(ctx, e.ID))
	once := l.InsertionOrder()
	putsAfterOnce := store.putCount()

	require.NoError(t, l.SyncComplete(ctx, e.ID))
	assert.Equal(t, once, l.InsertionOrder())
	assert.Equal(t, putsAfterOnce, store.putCount(), "second call is a no-op")

	require.NoError(t, l.SyncComplete(ctx, "missing"))
	assert.Empty(t, l.Unsynced())
}

func TestLedger_DeleteEvent_MissingIsNoop(t *testing.T) {
	l := newTestLedger(t, newTestStore())
	ctx := context.Background()

	_, err := l.LogEvent(ctx, "p", EventTypeFeed, details.Feed{AmountML: 90})
	require.NoError(t, err)

	require.NoError(t, l.DeleteEvent(ctx, "does-not-exist"))
	assert.Equal(t, 1, l.Len())
	assert.Empty(t, l.Tombstones())
}

func TestLedger_DeleteEvent_TombstoneOnlyWhenSynced(t *testing.T) {
	l := newTestLedger(t, newTestStore())
	ctx := context.Background()

	local, err := l.LogEvent(ctx, "p", EventTypeFeed, details.Feed{AmountML: 60})
	require.NoError(t, err)
	synced, err := l.LogEvent(ctx, "p", EventTypeFeed, details.Feed{AmountML: 70})
	require.NoError(t, err)
	require.NoError(t, l.SyncComplete(ctx, synced.ID))

	require.NoError(t, l.DeleteEvent(ctx, local.ID))
	assert.Empty(t, l.Tombstones())

	require.NoError(t, l.DeleteEvent(ctx, synced.ID))
	tombs := l.Tombstones()
	require.Len(t, tombs, 1)
	assert.Equal(t, synced.ID, tombs[0].EventID)
	assert.Zero(t, l.Len())

	require.NoError(t, l.ClearTombstone(ctx, synced.ID))
	assert.Empty(t, l.Tombstones())
}

func TestLedger_DeleteEvent_TombstoneAfterSyncAttempt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	l := newTestLedger(t, store)

	e, err := l.LogEvent(ctx, "p", EventTypeFeed, details.Feed{AmountML: 60})
	require.NoError(t, err)
	require.NoError(t, l.MarkSyncAttempted(ctx, e.ID))
	require.NoError(t, l.MarkSyncAttempted(ctx, e.ID))

	// el flag sobrevive a un reinicio
	reopened := newTestLedger(t, store)
	got, ok := reopened.Get(e.ID)
	require.True(t, ok)
	assert.True(t, got.SyncAttempted)
	assert.False(t, got.IsSynced)
	assert.Len(t, reopened.Unsynced(), 1)

	require.NoError(t, reopened.DeleteEvent(ctx, e.ID))
	tombs := reopened.Tombstones()
	require.Len(t, tombs, 1)
	assert.Equal(t, e.ID, tombs[0].EventID)
}

func TestLedger_RecordTombstone_SkipsLiveEvents(t *testing.T) {
	l := newTestLedger(t, newTestStore())
	ctx := context.Background()

	e, err := l.LogEvent(ctx, "p", EventTypeFeed, details.Feed{AmountML: 60})
	require.NoError(t, err)

	require.NoError(t, l.RecordTombstone(ctx, e.ID))
	assert.Empty(t, l.Tombstones())

	require.NoError(t, l.RecordTombstone(ctx, "gone"))
	require.NoError(t, l.RecordTombstone(ctx, "gone"))
	assert.Len(t, l.Tombstones(), 1)
}

func TestLedger_PersistenceFailure_KeepsStateAndRetries(t *testing.T) {
	store := newTestStore()
	l := newTestLedger(t, store)
	ctx := context.Background()

	store.setFail(true)
	e, err := l.LogEvent(ctx, "p", EventTypeMedication, details.Medication{Name: "vitamin D", Dose: 1, Unit: "drops"})
	require.Error(t, err)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotEmpty(t, e.ID, "event is returned even when persistence fails")
	assert.True(t, l.Contains(e.ID))
	assert.True(t, l.Dirty())

	require.Error(t, l.Persist(ctx))
	assert.True(t, l.Dirty())

	store.setFail(false)
	require.NoError(t, l.Persist(ctx))
	assert.False(t, l.Dirty())

	reloaded, err := OpenLedger(ctx, store, Options{})
	require.NoError(t, err)
	assert.True(t, reloaded.Contains(e.ID))
}

func TestLedger_PersistReload_RoundTrip(t *testing.T) {
	store := newTestStore()
	l := newTestLedger(t, store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.LogEventAt(ctx, fmt.Sprintf("p-%d", i), EventTypeFeed, details.Feed{AmountML: float64(10 * (i + 1))}, t0.Add(time.Duration(-i)*time.Hour))
		require.NoError(t, err)
	}
	_, err := l.LogEvent(ctx, "p", EventTypeSleep, details.Sleep{DurationMinutes: 45, Location: "crib"})
	require.NoError(t, err)
	first := l.InsertionOrder()[0]
	require.NoError(t, l.SyncComplete(ctx, first.ID))

	reloaded, err := OpenLedger(ctx, store, Options{})
	require.NoError(t, err)
	assert.Equal(t, l.InsertionOrder(), reloaded.InsertionOrder())
	assert.Equal(t, l.Events(), reloaded.Events())
}

func TestLedger_OpenCorrupt_StartsEmptyAndBacksUp(t *testing.T) {
	store := newTestStore()
	store.data[StorageKey] = []byte(`{"schema_version": 2, "events": [{"id": 7}]`)

	l, err := OpenLedger(context.Background(), store, Options{Now: func() time.Time { return t0 }})
	require.NotNil(t, l)

	var cerr *CorruptionError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ErrCorruption)
	assert.Zero(t, l.Len())

	backupKey := fmt.Sprintf("%s.corrupt.%d", StorageKey, t0.Unix())
	assert.Equal(t, backupKey, cerr.Backup)
	assert.Equal(t, store.data[StorageKey], store.data[backupKey])

	_, err = l.LogEvent(context.Background(), "p", EventTypeFeed, details.Feed{AmountML: 30})
	require.NoError(t, err, "a fresh ledger is usable after corruption")
}

func TestLedger_Subscribe_Coalesces(t *testing.T) {
	l := newTestLedger(t, newTestStore())
	ctx := context.Background()

	ch, cancel := l.Subscribe()
	defer cancel()

	for i := 0; i < 3; i++ {
		_, err := l.LogEvent(ctx, "p", EventTypeDiaper, details.Diaper{Kind: details.DiaperKindWet})
		require.NoError(t, err)
	}

	select {
	case <-ch:
	default:
		t.Fatal("expected change notification")
	}
	select {
	case <-ch:
		t.Fatal("notifications should coalesce")
	default:
	}

	_ = l.Events()
	select {
	case <-ch:
		t.Fatal("queries must not notify")
	default:
	}
}

func TestLedger_Queries_GroupAndLast(t *testing.T) {
	l := newTestLedger(t, newTestStore())
	ctx := context.Background()

	_, err := l.LogEventAt(ctx, "p", EventTypeSleep, details.Sleep{DurationMinutes: 30}, t0.Add(-5*time.Hour))
	require.NoError(t, err)
	latest, err := l.LogEventAt(ctx, "p", EventTypeSleep, details.Sleep{DurationMinutes: 60}, t0.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = l.LogEventAt(ctx, "p", EventTypeSleep, details.Sleep{DurationMinutes: 20}, t0.Add(-4*time.Hour))
	require.NoError(t, err)
	_, err = l.LogEvent(ctx, "p", EventTypeFeed, details.Feed{AmountML: 100})
	require.NoError(t, err)

	groups := l.GroupByType()
	assert.Len(t, groups[EventTypeSleep], 3)
	assert.Len(t, groups[EventTypeFeed], 1)

	last, ok := l.LastEventOfType(EventTypeSleep)
	require.True(t, ok)
	assert.Equal(t, latest.ID, last.ID)

	_, ok = l.LastEventOfType(EventTypeSolid)
	assert.False(t, ok)

	from := t0.Add(-4*time.Hour - time.Minute)
	window := l.List(ListFilter{Types: []EventType{EventTypeSleep}, From: &from, Limit: 1})
	require.Len(t, window, 1)
	assert.Equal(t, latest.ID, window[0].ID)
}

func ids(evs []CareEvent) []string {
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.ID)
	}
	return out
}
