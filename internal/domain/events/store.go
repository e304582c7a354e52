package events

import "context"

// Store es el almacenamiento del dispositivo: blobs bajo una key.
// Get devuelve ErrSnapshotNotFound si la key no existe.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
