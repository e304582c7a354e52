package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"care-ledger/internal/domain/events"
	"care-ledger/internal/platform/logger"
	"care-ledger/internal/ports/remote"
)

// Ledger es lo que el motor necesita del ledger local (*events.Ledger lo implementa).
type Ledger interface {
	Unsynced() []events.CareEvent
	Tombstones() []events.Tombstone
	Contains(id string) bool
	MarkSyncAttempted(ctx context.Context, id string) error
	SyncComplete(ctx context.Context, id string) error
	RecordTombstone(ctx context.Context, id string) error
	ClearTombstone(ctx context.Context, id string) error
	Subscribe() (<-chan struct{}, func())
}

type Options struct {
	Config  Config
	Logger  logger.Logger
	Metrics *Metrics
	Now     func() time.Time
}

// Engine drena eventos no sincronizados hacia el store remoto.
// Entrega at-least-once; el upsert idempotente por id lo vuelve exactly-once.
type Engine struct {
	ledger Ledger
	remote remote.EventStore
	cfg    Config
	log    logger.Logger
	m      *Metrics

	breaker *breaker

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewEngine(ledger Ledger, store remote.EventStore, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	m := opts.Metrics
	if m == nil {
		m = NewMetrics(nil)
	}
	cfg := opts.Config.withDefaults()

	return &Engine{
		ledger:   ledger,
		remote:   store,
		cfg:      cfg,
		log:      log.With(map[string]any{"component": "syncer"}),
		m:        m,
		breaker:  newBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown, now),
		inFlight: make(map[string]struct{}),
	}
}

// Result de una pasada.
type Result struct {
	Synced   int `json:"synced"`
	Deleted  int `json:"deleted"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"` // ya en vuelo en otra pasada
	Canceled int `json:"canceled"`

	Failures []error `json:"-"`
}

func (r *Result) add(o outcome) {
	switch o.kind {
	case outcomeSynced:
		r.Synced++
	case outcomeDeleted:
		r.Deleted++
	case outcomeFailed:
		r.Failed++
		r.Failures = append(r.Failures, o.err)
	case outcomeCanceled:
		r.Canceled++
	}
}

type outcomeKind int

const (
	outcomeSynced outcomeKind = iota
	outcomeDeleted
	outcomeFailed
	outcomeCanceled
)

type outcome struct {
	kind outcomeKind
	err  error
}

// InFlight devuelve cuántos ids tienen un request pendiente.
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inFlight)
}

// SyncOnce ejecuta una pasada: un upsert por evento pendiente que no esté ya en
// vuelo, y luego un delete por tombstone. Los fallos quedan en Result; solo
// devuelve error si el breaker está abierto.
func (e *Engine) SyncOnce(ctx context.Context) (Result, error) {
	if !e.breaker.Allow() {
		e.m.passes.WithLabelValues("circuit_open").Inc()
		e.m.breakerOpen.Set(1)
		return Result{}, ErrCircuitOpen
	}

	pending := e.ledger.Unsynced()
	tombs := e.ledger.Tombstones()
	e.m.pending.Set(float64(len(pending) + len(tombs)))

	var (
		res   Result
		resMu sync.Mutex
	)
	record := func(o outcome) {
		resMu.Lock()
		res.add(o)
		resMu.Unlock()
	}

	skip := func() {
		resMu.Lock()
		res.Skipped++
		resMu.Unlock()
	}

	var upserts errgroup.Group
	upserts.SetLimit(e.cfg.MaxParallel)
	for _, ev := range pending {
		ev := ev
		if !e.acquire(ev.ID) {
			skip()
			continue
		}
		upserts.Go(func() error {
			defer e.release(ev.ID)
			record(e.pushEvent(ctx, ev))
			return nil
		})
	}
	_ = upserts.Wait()

	// Tombstones después de los upserts: un id borrado mientras su upsert
	// estaba en vuelo se tombstonea al terminar ese upsert.
	var deletes errgroup.Group
	deletes.SetLimit(e.cfg.MaxParallel)
	for _, t := range e.ledger.Tombstones() {
		t := t
		if !e.acquire(t.EventID) {
			skip()
			continue
		}
		deletes.Go(func() error {
			defer e.release(t.EventID)
			record(e.pushDelete(ctx, t.EventID))
			return nil
		})
	}
	_ = deletes.Wait()

	e.observePass(res)
	return res, nil
}

func (e *Engine) pushEvent(ctx context.Context, ev events.CareEvent) outcome {
	payload, err := toRemote(ev)
	if err != nil {
		// No debería pasar: la metadata se validó al registrar el evento.
		e.log.Error("sync: cannot encode event", map[string]any{"event_id": ev.ID, "err": err.Error()})
		return outcome{kind: outcomeFailed, err: &SyncError{EventID: ev.ID, Op: "upsert", Err: err}}
	}

	if ctx.Err() != nil {
		e.m.requests.WithLabelValues("upsert", "canceled").Inc()
		return outcome{kind: outcomeCanceled}
	}
	// Antes del request: si la respuesta se pierde, el remoto igual puede
	// tener la fila y un borrado posterior tiene que propagarse.
	if err := e.ledger.MarkSyncAttempted(ctx, ev.ID); err != nil {
		e.log.Warn("sync: attempt mark not persisted", map[string]any{"event_id": ev.ID, "err": err.Error()})
	}

	if err := e.call(ctx, "upsert", func(rctx context.Context) error {
		return e.remote.Upsert(rctx, payload)
	}); err != nil {
		e.tombstoneIfDeleted(ctx, ev.ID)
		return e.failure(ctx, ev.ID, "upsert", err)
	}

	if err := e.ledger.SyncComplete(ctx, ev.ID); err != nil {
		// El flag ya está en memoria; el ledger queda dirty.
		e.log.Warn("sync: mark synced not persisted", map[string]any{"event_id": ev.ID, "err": err.Error()})
	}
	e.tombstoneIfDeleted(ctx, ev.ID)
	return outcome{kind: outcomeSynced}
}

// tombstoneIfDeleted cubre el borrado local mientras el upsert estaba en vuelo.
func (e *Engine) tombstoneIfDeleted(ctx context.Context, id string) {
	if e.ledger.Contains(id) {
		return
	}
	if err := e.ledger.RecordTombstone(context.WithoutCancel(ctx), id); err != nil {
		e.log.Warn("sync: tombstone not persisted", map[string]any{"event_id": id, "err": err.Error()})
	}
}

func (e *Engine) pushDelete(ctx context.Context, id string) outcome {
	if err := e.call(ctx, "delete", func(rctx context.Context) error {
		return e.remote.Delete(rctx, id)
	}); err != nil {
		return e.failure(ctx, id, "delete", err)
	}
	if err := e.ledger.ClearTombstone(ctx, id); err != nil {
		e.log.Warn("sync: clear tombstone not persisted", map[string]any{"event_id": id, "err": err.Error()})
	}
	return outcome{kind: outcomeDeleted}
}

// call ejecuta un request con timeout acotado y registra métricas y breaker.
func (e *Engine) call(ctx context.Context, op string, fn func(context.Context) error) error {
	rctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	err := fn(rctx)
	e.m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		e.m.requests.WithLabelValues(op, "ok").Inc()
		e.breaker.Success()
	}
	return err
}

func (e *Engine) failure(ctx context.Context, id, op string, err error) outcome {
	if ctx.Err() != nil {
		// Cancelado (app en background / shutdown): no cuenta para el breaker.
		e.m.requests.WithLabelValues(op, "canceled").Inc()
		return outcome{kind: outcomeCanceled}
	}
	e.m.requests.WithLabelValues(op, "error").Inc()
	e.breaker.Failure()
	serr := &SyncError{EventID: id, Op: op, Err: err}
	e.log.Warn("sync: request failed", map[string]any{"event_id": id, "op": op, "err": err.Error()})
	return outcome{kind: outcomeFailed, err: serr}
}

func (e *Engine) observePass(res Result) {
	label := "ok"
	if res.Failed > 0 {
		label = "partial"
	}
	e.m.passes.WithLabelValues(label).Inc()

	if e.breaker.State() == breakerOpen {
		e.m.breakerOpen.Set(1)
	} else {
		e.m.breakerOpen.Set(0)
	}

	if res.Synced+res.Deleted+res.Failed > 0 {
		e.log.Info("sync: pass done", map[string]any{
			"synced":   res.Synced,
			"deleted":  res.Deleted,
			"failed":   res.Failed,
			"skipped":  res.Skipped,
			"canceled": res.Canceled,
		})
	}
}

// acquire reserva el id; false si ya hay un request en vuelo para él.
func (e *Engine) acquire(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[id]; busy {
		return false
	}
	e.inFlight[id] = struct{}{}
	return true
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	delete(e.inFlight, id)
	e.mu.Unlock()
}

// Run es la tarea de fondo: una pasada al arrancar (retoma lo pendiente del
// lanzamiento anterior), luego una pasada por cambio del ledger con debounce,
// y reintentos con backoff exponencial mientras haya fallos.
func (e *Engine) Run(ctx context.Context) error {
	changes, unsubscribe := e.ledger.Subscribe()
	defer unsubscribe()

	bo := &backoff{initial: e.cfg.BackoffInitial, max: e.cfg.BackoffMax}

	trigger := time.NewTimer(0)
	defer trigger.Stop()

	e.log.Info("sync: engine started", nil)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("sync: engine stopped", map[string]any{"reason": ctx.Err().Error()})
			return ctx.Err()

		case <-changes:
			resetTimer(trigger, e.cfg.Debounce)

		case <-trigger.C:
			res, err := e.SyncOnce(ctx)
			if ctx.Err() != nil {
				continue
			}
			switch {
			case errors.Is(err, ErrCircuitOpen) || res.Failed > 0:
				wait := bo.Next()
				e.log.Debug("sync: retry scheduled", map[string]any{"in": wait.String(), "failed": res.Failed})
				resetTimer(trigger, wait)
			case res.Skipped > 0:
				// Otra pasada tiene esos ids en vuelo; revisar cuando termine.
				resetTimer(trigger, e.cfg.Debounce)
			default:
				bo.Reset()
			}
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func toRemote(ev events.CareEvent) (remote.Event, error) {
	raw, err := events.EncodeMetadata(ev.Metadata)
	if err != nil {
		return remote.Event{}, err
	}
	return remote.Event{
		ID:        ev.ID,
		ActorID:   ev.ActorID,
		EventType: string(ev.Type),
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
		Metadata:  raw,
	}, nil
}
