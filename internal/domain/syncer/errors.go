package syncer

import (
	"errors"
	"fmt"
)

var (
	ErrSync = errors.New("sync error")

	// ErrCircuitOpen: la pasada no se ejecutó porque el breaker está abierto.
	ErrCircuitOpen = errors.New("sync circuit open")
)

// SyncError es siempre recuperable: el evento queda pendiente para la próxima pasada.
type SyncError struct {
	EventID string
	Op      string // "upsert" | "delete"
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync error: %s %s: %v", e.Op, e.EventID, e.Err)
}

func (e *SyncError) Unwrap() []error { return []error{ErrSync, e.Err} }
