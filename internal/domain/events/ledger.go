package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"care-ledger/internal/platform/logger"
)

type Options struct {
	Key    string // default StorageKey
	Logger logger.Logger

	Now   func() time.Time
	NewID func() string
}

// Ledger es la fuente de verdad local de eventos de cuidado.
// Se construye una vez y se pasa por referencia (no hay singleton global).
type Ledger struct {
	// persistMu serializa mutación + escritura: los documentos llegan al store
	// en el mismo orden en que se aplicaron los cambios.
	persistMu sync.Mutex

	mu         sync.RWMutex
	events     []CareEvent // orden de inserción
	ids        map[string]struct{}
	tombstones []Tombstone
	dirty      bool

	store Store
	key   string
	log   logger.Logger
	now   func() time.Time
	newID func() string

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

func newLedger(store Store, opts Options) *Ledger {
	l := &Ledger{
		ids:   make(map[string]struct{}),
		store: store,
		key:   opts.Key,
		log:   opts.Logger,
		now:   opts.Now,
		newID: opts.NewID,
		subs:  make(map[int]chan struct{}),
	}
	if strings.TrimSpace(l.key) == "" {
		l.key = StorageKey
	}
	if l.log == nil {
		l.log = logger.Nop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.newID == nil {
		l.newID = uuid.NewString
	}
	return l
}

// OpenLedger carga el ledger desde store.
// Si el documento está corrupto devuelve un ledger vacío utilizable junto con
// un *CorruptionError; los bytes originales se copian a "<key>.corrupt.<unix>".
func OpenLedger(ctx context.Context, store Store, opts Options) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger store required")
	}
	l := newLedger(store, opts)

	raw, err := store.Get(ctx, l.key)
	if errors.Is(err, ErrSnapshotNotFound) {
		l.log.Info("ledger: starting empty", map[string]any{"key": l.key})
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	evs, tombs, err := DecodeDocument(raw)
	if err != nil {
		backup := fmt.Sprintf("%s.corrupt.%d", l.key, l.now().Unix())
		if perr := store.Put(ctx, backup, raw); perr != nil {
			l.log.Error("ledger: could not back up corrupt document", map[string]any{"key": l.key, "err": perr.Error()})
			backup = ""
		}
		l.log.Error("ledger: corrupt document, starting fresh", map[string]any{
			"key":    l.key,
			"backup": backup,
			"err":    err.Error(),
		})
		return l, &CorruptionError{Key: l.key, Backup: backup, Err: err}
	}

	l.events = evs
	for _, e := range evs {
		l.ids[e.ID] = struct{}{}
	}
	l.tombstones = tombs
	l.log.Info("ledger: loaded", map[string]any{"key": l.key, "events": len(evs), "tombstones": len(tombs)})
	return l, nil
}

// LogEvent registra un evento ocurrido ahora.
func (l *Ledger) LogEvent(ctx context.Context, actorID string, t EventType, m Metadata) (CareEvent, error) {
	return l.LogEventAt(ctx, actorID, t, m, time.Time{})
}

// LogEventAt registra un evento con timestamp explícito (zero = ahora).
// Si falla solo la persistencia devuelve el evento junto con *PersistenceError:
// el evento ya está en memoria.
func (l *Ledger) LogEventAt(ctx context.Context, actorID string, t EventType, m Metadata, occurredAt time.Time) (CareEvent, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return CareEvent{}, &ValidationError{Type: t, Err: errors.New("actor id required")}
	}
	norm, err := CheckMetadata(t, m)
	if err != nil {
		return CareEvent{}, err
	}

	now := l.now().UTC()
	ts := occurredAt.UTC()
	if occurredAt.IsZero() {
		ts = now
	}

	e := CareEvent{
		ID:         l.newID(),
		ActorID:    actorID,
		Type:       t,
		Timestamp:  ts,
		RecordedAt: now,
		Metadata:   norm,
	}

	err = l.mutate(ctx, "log_event", func() (bool, error) {
		if _, exists := l.ids[e.ID]; exists || strings.TrimSpace(e.ID) == "" {
			return false, &ValidationError{Type: t, Err: ErrDuplicateID}
		}
		l.events = append(l.events, e)
		l.ids[e.ID] = struct{}{}
		return true, nil
	})
	if errors.Is(err, ErrValidation) {
		return CareEvent{}, err
	}
	return e, err
}

// DeleteEvent borra el evento si existe; no es error si no existe.
// Si ya estaba sincronizado, o hubo algún upsert, deja un Tombstone para
// propagar el borrado.
func (l *Ledger) DeleteEvent(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	return l.mutate(ctx, "delete_event", func() (bool, error) {
		i := l.indexOf(id)
		if i < 0 {
			return false, nil
		}
		e := l.events[i]
		l.events = append(l.events[:i:i], l.events[i+1:]...)
		delete(l.ids, id)
		if e.IsSynced || e.SyncAttempted {
			l.addTombstoneLocked(id)
		}
		return true, nil
	})
}

// MarkSyncAttempted registra que se va a intentar un upsert del evento.
// Idempotente.
func (l *Ledger) MarkSyncAttempted(ctx context.Context, id string) error {
	return l.mutate(ctx, "mark_sync_attempted", func() (bool, error) {
		i := l.indexOf(id)
		if i < 0 || l.events[i].SyncAttempted || l.events[i].IsSynced {
			return false, nil
		}
		l.events[i].SyncAttempted = true
		return true, nil
	})
}

// SyncComplete marca el evento como sincronizado. Idempotente: sobre un id
// inexistente o ya sincronizado no hace nada.
func (l *Ledger) SyncComplete(ctx context.Context, id string) error {
	return l.mutate(ctx, "sync_complete", func() (bool, error) {
		i := l.indexOf(id)
		if i < 0 || l.events[i].IsSynced {
			return false, nil
		}
		l.events[i].IsSynced = true
		return true, nil
	})
}

// RecordTombstone deja un tombstone para un id que ya no está en el ledger
// (p.ej. se borró mientras su upsert estaba en vuelo).
func (l *Ledger) RecordTombstone(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return l.mutate(ctx, "record_tombstone", func() (bool, error) {
		if l.indexOf(id) >= 0 || l.hasTombstoneLocked(id) {
			return false, nil
		}
		l.addTombstoneLocked(id)
		return true, nil
	})
}

// ClearTombstone quita el tombstone una vez que el remoto confirmó el borrado.
func (l *Ledger) ClearTombstone(ctx context.Context, id string) error {
	return l.mutate(ctx, "clear_tombstone", func() (bool, error) {
		for i, t := range l.tombstones {
			if t.EventID == id {
				l.tombstones = append(l.tombstones[:i:i], l.tombstones[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	})
}

// Persist reintenta escribir el estado actual (después de un PersistenceError).
func (l *Ledger) Persist(ctx context.Context) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.RLock()
	raw, err := EncodeDocument(l.events, l.tombstones)
	l.mu.RUnlock()
	if err != nil {
		return &PersistenceError{Op: "persist", Err: err}
	}
	return l.writeLocked(ctx, "persist", raw)
}

// Dirty indica que hay cambios en memoria que no llegaron al store.
func (l *Ledger) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty
}

// Subscribe devuelve un canal que recibe una señal (coalescida) por cada cambio.
// cancel libera la suscripción.
func (l *Ledger) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	l.subsMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.subsMu.Lock()
			delete(l.subs, id)
			l.subsMu.Unlock()
		})
	}
}

// mutate aplica fn bajo lock y persiste el documento completo si hubo cambios.
func (l *Ledger) mutate(ctx context.Context, op string, fn func() (bool, error)) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	changed, err := fn()
	if err != nil || !changed {
		l.mu.Unlock()
		return err
	}
	l.dirty = true
	raw, encErr := EncodeDocument(l.events, l.tombstones)
	l.mu.Unlock()

	l.notify()

	if encErr != nil {
		return &PersistenceError{Op: op, Err: encErr}
	}
	return l.writeLocked(ctx, op, raw)
}

// writeLocked requiere persistMu.
func (l *Ledger) writeLocked(ctx context.Context, op string, raw []byte) error {
	if err := l.store.Put(ctx, l.key, raw); err != nil {
		l.log.Warn("ledger: persist failed", map[string]any{"op": op, "key": l.key, "err": err.Error()})
		return &PersistenceError{Op: op, Err: err}
	}
	l.mu.Lock()
	l.dirty = false
	l.mu.Unlock()
	return nil
}

func (l *Ledger) notify() {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- struct{}{}:
		default:
			// ya hay una señal pendiente
		}
	}
}

func (l *Ledger) indexOf(id string) int {
	if _, ok := l.ids[id]; !ok {
		return -1
	}
	for i := range l.events {
		if l.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) hasTombstoneLocked(id string) bool {
	for _, t := range l.tombstones {
		if t.EventID == id {
			return true
		}
	}
	return false
}

func (l *Ledger) addTombstoneLocked(id string) {
	if l.hasTombstoneLocked(id) {
		return
	}
	l.tombstones = append(l.tombstones, Tombstone{EventID: id, DeletedAt: l.now().UTC()})
}

// -------------------------
// Queries (solo lectura, nunca persisten)
// -------------------------

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

func (l *Ledger) Get(id string) (CareEvent, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.indexOf(id)
	if i < 0 {
		return CareEvent{}, false
	}
	return l.events[i], true
}

func (l *Ledger) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

// InsertionOrder devuelve los eventos en el orden en que se registraron (auditoría/replay).
func (l *Ledger) InsertionOrder() []CareEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]CareEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Events devuelve los eventos para mostrar: timestamp desc.
func (l *Ledger) Events() []CareEvent {
	return sortForDisplay(l.InsertionOrder())
}

func (l *Ledger) List(filter ListFilter) []CareEvent {
	all := l.Events()
	out := make([]CareEvent, 0, len(all))
	for _, e := range all {
		if len(filter.Types) > 0 && !containsType(filter.Types, e.Type) {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

func (l *Ledger) ByType(t EventType) []CareEvent {
	return l.List(ListFilter{Types: []EventType{t}})
}

func (l *Ledger) GroupByType() map[EventType][]CareEvent {
	out := make(map[EventType][]CareEvent)
	for _, e := range l.Events() {
		out[e.Type] = append(out[e.Type], e)
	}
	return out
}

// LastEventOfType devuelve el evento de tipo t con timestamp más reciente.
func (l *Ledger) LastEventOfType(t EventType) (CareEvent, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return LastOfType(l.events, t)
}

// Unsynced devuelve los eventos pendientes de sync en orden de inserción.
func (l *Ledger) Unsynced() []CareEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]CareEvent, 0)
	for _, e := range l.events {
		if !e.IsSynced {
			out = append(out, e)
		}
	}
	return out
}

func (l *Ledger) Tombstones() []Tombstone {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Tombstone, len(l.tombstones))
	copy(out, l.tombstones)
	return out
}

// LastOfType busca sobre cualquier slice (lo usa también prediction).
func LastOfType(evs []CareEvent, t EventType) (CareEvent, bool) {
	var last CareEvent
	found := false
	for _, e := range evs {
		if e.Type != t {
			continue
		}
		if !found || e.Timestamp.After(last.Timestamp) {
			last = e
			found = true
		}
	}
	return last, found
}

// sortForDisplay ordena por timestamp desc; a igual timestamp, el último insertado primero.
func sortForDisplay(evs []CareEvent) []CareEvent {
	for i, j := 0, len(evs)-1; i < j; i, j = i+1, j-1 {
		evs[i], evs[j] = evs[j], evs[i]
	}
	sort.SliceStable(evs, func(i, j int) bool {
		return evs[i].Timestamp.After(evs[j].Timestamp)
	})
	return evs
}

func containsType(types []EventType, t EventType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
