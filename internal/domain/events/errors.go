package events

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrPersistence = errors.New("persistence error")
	ErrCorruption  = errors.New("corrupted ledger")

	ErrDuplicateID = errors.New("duplicate event id")

	// ErrSnapshotNotFound lo devuelven los Store cuando la key no existe.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ValidationError: la metadata no corresponde al tipo de evento. Nunca se persiste.
type ValidationError struct {
	Type EventType
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("validation error: %v", e.Err)
	}
	return fmt.Sprintf("validation error (%s): %v", e.Type, e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Err} }

// PersistenceError: falló la escritura local. El estado en memoria se conserva
// y el ledger queda dirty hasta que Persist tenga éxito.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// CorruptionError: el documento persistido no se pudo leer. El ledger arranca vacío.
type CorruptionError struct {
	Key    string
	Backup string // key donde quedó copia de los bytes originales ("" si no se pudo)
	Err    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupted ledger %q: %v", e.Key, e.Err)
}

func (e *CorruptionError) Unwrap() []error { return []error{ErrCorruption, e.Err} }
