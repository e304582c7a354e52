package events

import "time"

type CareEvent struct {
	ID      string
	ActorID string

	Type EventType

	Timestamp  time.Time // cuándo ocurrió
	RecordedAt time.Time // cuándo se registró en el dispositivo

	Metadata Metadata

	// Solo bookkeeping local; lo escribe únicamente el motor de sync.
	IsSynced bool

	// Hubo al menos un upsert. Un upsert fallido pudo haber llegado igual
	// al remoto, así que borrar el evento deja tombstone.
	SyncAttempted bool
}

// Tombstone marca un evento ya sincronizado que se borró localmente
// y cuyo borrado todavía no se propagó al remoto.
type Tombstone struct {
	EventID   string
	DeletedAt time.Time
}
