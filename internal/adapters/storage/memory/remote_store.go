package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"care-ledger/internal/ports/remote"
)

var ErrInvalidEvent = errors.New("invalid remote event")

// RemoteStore es un backend remoto en memoria con upsert idempotente por id.
// Cuenta cada request para poder verificar at-most-once desde tests.
type RemoteStore struct {
	mu    sync.RWMutex
	byID  map[string]remote.Event
	calls map[string]int
}

func NewRemoteStore() *RemoteStore {
	return &RemoteStore{
		byID:  make(map[string]remote.Event),
		calls: make(map[string]int),
	}
}

func (r *RemoteStore) Upsert(ctx context.Context, e remote.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ID == "" {
		return ErrInvalidEvent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[e.ID]++
	// ON CONFLICT DO NOTHING: la primera versión gana.
	if _, exists := r.byID[e.ID]; !exists {
		r.byID[e.ID] = e
	}
	return nil
}

func (r *RemoteStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, id)
	return nil
}

func (r *RemoteStore) Get(id string) (remote.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

// Calls devuelve cuántos upserts recibió el id.
func (r *RemoteStore) Calls(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls[id]
}

func (r *RemoteStore) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
