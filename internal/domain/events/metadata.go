package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"care-ledger/internal/domain/events/details"
)

// Metadata es la unión de los detalles por tipo (details.Feed, details.Sleep, ...).
type Metadata interface {
	Validate() error
}

var errNilMetadata = errors.New("metadata required")

// normalizeMetadata devuelve el valor (no puntero) y el tipo de evento al que pertenece.
func normalizeMetadata(m Metadata) (Metadata, EventType, error) {
	switch v := m.(type) {
	case nil:
		return nil, "", errNilMetadata
	case details.Feed:
		return v, EventTypeFeed, nil
	case *details.Feed:
		if v == nil {
			return nil, "", errNilMetadata
		}
		return *v, EventTypeFeed, nil
	case details.Sleep:
		return v, EventTypeSleep, nil
	case *details.Sleep:
		if v == nil {
			return nil, "", errNilMetadata
		}
		return *v, EventTypeSleep, nil
	case details.Diaper:
		return v, EventTypeDiaper, nil
	case *details.Diaper:
		if v == nil {
			return nil, "", errNilMetadata
		}
		return *v, EventTypeDiaper, nil
	case details.Medication:
		return v, EventTypeMedication, nil
	case *details.Medication:
		if v == nil {
			return nil, "", errNilMetadata
		}
		return *v, EventTypeMedication, nil
	case details.Solid:
		return v, EventTypeSolid, nil
	case *details.Solid:
		if v == nil {
			return nil, "", errNilMetadata
		}
		return *v, EventTypeSolid, nil
	default:
		return nil, "", fmt.Errorf("unsupported metadata %T", m)
	}
}

// CheckMetadata valida que m corresponda a t y cumpla sus reglas.
func CheckMetadata(t EventType, m Metadata) (Metadata, error) {
	if !t.Valid() {
		return nil, &ValidationError{Type: t, Err: errors.New("unknown event type")}
	}
	norm, mt, err := normalizeMetadata(m)
	if err != nil {
		return nil, &ValidationError{Type: t, Err: err}
	}
	if mt != t {
		return nil, &ValidationError{Type: t, Err: fmt.Errorf("metadata is for %s", mt)}
	}
	if err := norm.Validate(); err != nil {
		return nil, &ValidationError{Type: t, Err: err}
	}
	return norm, nil
}

// DecodeMetadata decodifica el JSON de metadata según el tipo. Campos desconocidos
// se rechazan para no leer como vacío algo que vino con otra forma.
func DecodeMetadata(t EventType, raw json.RawMessage) (Metadata, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ValidationError{Type: t, Err: errNilMetadata}
	}

	var m Metadata
	var err error
	switch t {
	case EventTypeFeed:
		var v details.Feed
		err = strictUnmarshal(raw, &v)
		m = v
	case EventTypeSleep:
		var v details.Sleep
		err = strictUnmarshal(raw, &v)
		m = v
	case EventTypeDiaper:
		var v details.Diaper
		err = strictUnmarshal(raw, &v)
		m = v
	case EventTypeMedication:
		var v details.Medication
		err = strictUnmarshal(raw, &v)
		m = v
	case EventTypeSolid:
		var v details.Solid
		err = strictUnmarshal(raw, &v)
		m = v
	default:
		return nil, &ValidationError{Type: t, Err: errors.New("unknown event type")}
	}
	if err != nil {
		return nil, &ValidationError{Type: t, Err: err}
	}
	return CheckMetadata(t, m)
}

// EncodeMetadata es el inverso de DecodeMetadata.
func EncodeMetadata(m Metadata) (json.RawMessage, error) {
	norm, _, err := normalizeMetadata(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(norm)
}

func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
