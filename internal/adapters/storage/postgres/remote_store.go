package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"care-ledger/internal/ports/remote"
)

// RemoteStore implementa remote.EventStore escribiendo directo en Postgres.
type RemoteStore struct {
	db *sql.DB
}

func NewRemoteStore(db *sql.DB) *RemoteStore {
	return &RemoteStore{db: db}
}

// Upsert usa ON CONFLICT DO NOTHING: reenviar el mismo id no duplica filas
// ni pisa la versión ya guardada.
func (r *RemoteStore) Upsert(ctx context.Context, e remote.Event) error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("postgres: event id required")
	}
	meta := []byte(e.Metadata)
	if len(meta) == 0 {
		meta = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_events (id, actor_id, event_type, occurred_at, metadata)
		VALUES ($1, $2, $3, $4::timestamptz, $5::jsonb)
		ON CONFLICT (id) DO NOTHING
	`,
		e.ID,
		e.ActorID,
		e.EventType,
		e.Timestamp,
		string(meta),
	)
	return err
}

func (r *RemoteStore) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM care_events WHERE id = $1`, strings.TrimSpace(id))
	return err
}

// Count devuelve cuántas filas hay con ese id (0 o 1). Útil para verificar
// que los reintentos no duplicaron nada.
func (r *RemoteStore) Count(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM care_events WHERE id = $1`, id).Scan(&n)
	return n, err
}
