package events

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	// StorageKey es la única key bajo la que vive el ledger en el dispositivo.
	StorageKey = "care-ledger"

	// SchemaVersion actual del documento persistido.
	// v1: sin actor_id, recorded_at ni tombstones.
	SchemaVersion = 2
)

//go:embed schema.json
var documentSchemaJSON string

var documentSchema = jsonschema.MustCompileString("care-ledger.schema.json", documentSchemaJSON)

type document struct {
	SchemaVersion int               `json:"schema_version"`
	Events        []eventRecord     `json:"events"`
	Tombstones    []tombstoneRecord `json:"tombstones"`
}

type eventRecord struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	Type       EventType       `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	RecordedAt time.Time       `json:"recorded_at"`
	Metadata   json.RawMessage `json:"metadata"`
	IsSynced   bool            `json:"is_synced"`

	SyncAttempted bool `json:"sync_attempted,omitempty"`
}

type tombstoneRecord struct {
	EventID   string    `json:"event_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// EncodeDocument serializa el ledger completo en orden de inserción.
func EncodeDocument(evs []CareEvent, tombs []Tombstone) ([]byte, error) {
	doc := document{
		SchemaVersion: SchemaVersion,
		Events:        make([]eventRecord, 0, len(evs)),
		Tombstones:    make([]tombstoneRecord, 0, len(tombs)),
	}
	for _, e := range evs {
		raw, err := EncodeMetadata(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		doc.Events = append(doc.Events, eventRecord{
			ID:         e.ID,
			ActorID:    e.ActorID,
			Type:       e.Type,
			Timestamp:  e.Timestamp,
			RecordedAt: e.RecordedAt,
			Metadata:   raw,
			IsSynced:   e.IsSynced,

			SyncAttempted: e.SyncAttempted,
		})
	}
	for _, t := range tombs {
		doc.Tombstones = append(doc.Tombstones, tombstoneRecord{EventID: t.EventID, DeletedAt: t.DeletedAt})
	}
	return json.Marshal(doc)
}

// DecodeDocument es el inverso de EncodeDocument. Migra versiones anteriores y
// valida contra el JSON schema embebido antes de mapear a tipos.
func DecodeDocument(raw []byte) ([]CareEvent, []Tombstone, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, nil, fmt.Errorf("decode json: %w", err)
	}
	root, ok := generic.(map[string]any)
	if !ok {
		return nil, nil, errors.New("document is not an object")
	}

	version, err := schemaVersionOf(root)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case version == 1:
		migrateV1(root)
	case version == SchemaVersion:
	default:
		return nil, nil, fmt.Errorf("unsupported schema_version %d", version)
	}

	if err := documentSchema.Validate(root); err != nil {
		return nil, nil, fmt.Errorf("schema: %w", err)
	}

	migrated, err := json.Marshal(root)
	if err != nil {
		return nil, nil, err
	}
	var doc document
	if err := json.Unmarshal(migrated, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode document: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Events))
	evs := make([]CareEvent, 0, len(doc.Events))
	for _, r := range doc.Events {
		if _, dup := seen[r.ID]; dup {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}

		m, err := DecodeMetadata(r.Type, r.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("event %s: %w", r.ID, err)
		}
		evs = append(evs, CareEvent{
			ID:         r.ID,
			ActorID:    r.ActorID,
			Type:       r.Type,
			Timestamp:  r.Timestamp.UTC(),
			RecordedAt: r.RecordedAt.UTC(),
			Metadata:   m,
			IsSynced:   r.IsSynced,

			SyncAttempted: r.SyncAttempted,
		})
	}

	tombs := make([]Tombstone, 0, len(doc.Tombstones))
	for _, t := range doc.Tombstones {
		tombs = append(tombs, Tombstone{EventID: t.EventID, DeletedAt: t.DeletedAt.UTC()})
	}
	return evs, tombs, nil
}

func schemaVersionOf(root map[string]any) (int, error) {
	n, ok := root["schema_version"].(json.Number)
	if !ok {
		return 0, errors.New("schema_version missing")
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("schema_version: %w", err)
	}
	return int(v), nil
}

func migrateV1(root map[string]any) {
	if list, ok := root["events"].([]any); ok {
		for _, item := range list {
			ev, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if _, ok := ev["actor_id"]; !ok {
				ev["actor_id"] = ""
			}
			if _, ok := ev["recorded_at"]; !ok {
				ev["recorded_at"] = ev["timestamp"]
			}
		}
	}
	if _, ok := root["tombstones"]; !ok {
		root["tombstones"] = []any{}
	}
	root["schema_version"] = json.Number(fmt.Sprint(SchemaVersion))
}
