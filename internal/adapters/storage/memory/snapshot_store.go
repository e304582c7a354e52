package memory

import (
	"context"
	"sync"

	"care-ledger/internal/domain/events"
)

// SnapshotStore guarda el documento del ledger en memoria. Se pierde al
// reiniciar: pensado para tests y para correr la API sin disco.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: make(map[string][]byte)}
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, events.ErrSnapshotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *SnapshotStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}
