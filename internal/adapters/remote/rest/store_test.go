package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-ledger/internal/platform/httpclient"
	"care-ledger/internal/ports/remote"
)

// fakeBackend imita el upsert ignore-duplicates de PostgREST.
type fakeBackend struct {
	mu    sync.Mutex
	rows  map[string]remote.Event
	posts int
	fail  int // status a devolver (0 = ok)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.URL.Path != "/rest/v1/care_events" {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("apikey") != "secret" || r.Header.Get("Authorization") != "Bearer secret" {
		http.Error(w, "no api key", http.StatusUnauthorized)
		return
	}
	if b.fail != 0 {
		http.Error(w, "upstream", b.fail)
		return
	}

	switch r.Method {
	case http.MethodPost:
		b.posts++
		if r.URL.Query().Get("on_conflict") != "id" {
			http.Error(w, "missing on_conflict", http.StatusBadRequest)
			return
		}
		var rows []remote.Event
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, e := range rows {
			if _, ok := b.rows[e.ID]; !ok {
				b.rows[e.ID] = e
			}
		}
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		delete(b.rows, r.URL.Query().Get("id")[len("eq."):])
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeBackend) {
	t.Helper()
	b := &fakeBackend{rows: map[string]remote.Event{}}
	ts := httptest.NewServer(b)
	t.Cleanup(ts.Close)

	s, err := New(Config{BaseURL: ts.URL, APIKey: "secret", Timeout: time.Second})
	require.NoError(t, err)
	return s, b
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, b := newTestStore(t)

	e := remote.Event{
		ID:        "e1",
		ActorID:   "parent-1",
		EventType: "FEED",
		Timestamp: "2025-12-22T10:00:00Z",
		Metadata:  json.RawMessage(`{"amount_ml":120}`),
	}
	require.NoError(t, s.Upsert(ctx, e))
	require.NoError(t, s.Upsert(ctx, e))

	assert.Equal(t, 2, b.posts)
	require.Len(t, b.rows, 1)
	assert.JSONEq(t, `{"amount_ml":120}`, string(b.rows["e1"].Metadata))
	assert.Equal(t, "FEED", b.rows["e1"].EventType)

	require.NoError(t, s.Delete(ctx, "e1"))
	require.NoError(t, s.Delete(ctx, "e1"))
	assert.Empty(t, b.rows)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s, b := newTestStore(t)

	b.fail = http.StatusServiceUnavailable
	err := s.Upsert(ctx, remote.Event{ID: "e1"})
	require.Error(t, err)
	assert.True(t, httpclient.IsStatus(err, http.StatusServiceUnavailable))

	b.fail = http.StatusConflict
	assert.NoError(t, s.Upsert(ctx, remote.Event{ID: "e1"}), "409 means the row already exists")

	assert.Error(t, s.Upsert(ctx, remote.Event{}))

	_, err = New(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
