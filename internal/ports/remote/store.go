package remote

import (
	"context"
	"encoding/json"
)

// Event es el contrato mínimo que acepta el store remoto.
type Event struct {
	ID        string          `json:"id"`
	ActorID   string          `json:"actor_id"`
	EventType string          `json:"event_type"`
	Timestamp string          `json:"timestamp"` // ISO-8601 / RFC3339
	Metadata  json.RawMessage `json:"metadata"`
}

// EventStore es el colaborador remoto.
// Upsert debe ser idempotente por ID: reenviar el mismo ID no duplica filas.
// Delete también es idempotente: borrar un ID inexistente no es error.
type EventStore interface {
	Upsert(ctx context.Context, e Event) error
	Delete(ctx context.Context, id string) error
}
