package events

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"care-ledger/internal/middleware"
	"care-ledger/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, l *Ledger, log logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	r.Route("/events", func(er chi.Router) {
		er.Post("/", createEventHandler(l, log))
		er.Get("/", listEventsHandler(l))
		er.Get("/{eventID}", getEventHandler(l))
		er.Delete("/{eventID}", deleteEventHandler(l, log))
	})
	r.Post("/ledger/persist", persistHandler(l, log))
}

// createEventRequest es el cuerpo de la solicitud para registrar un evento de cuidado.
type createEventRequest struct {
	Type       EventType       `json:"type" enums:"FEED,SLEEP,DIAPER,MEDICATION,SOLID"`
	OccurredAt string          `json:"occurred_at"` // RFC3339, opcional (default: ahora)
	Metadata   json.RawMessage `json:"metadata" swaggertype:"object"`
}

// eventResponse representa un evento del ledger devuelto por la API.
type eventResponse struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	Type       EventType       `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	RecordedAt time.Time       `json:"recorded_at"`
	Metadata   json.RawMessage `json:"metadata" swaggertype:"object"`
	IsSynced   bool            `json:"is_synced"`

	// false si el evento quedó solo en memoria (falló la escritura local).
	Persisted *bool `json:"persisted,omitempty"`
}

// persistResponse indica si quedan cambios sin escribir.
type persistResponse struct {
	Persisted bool `json:"persisted"`
	Dirty     bool `json:"dirty"`
}

// createEventHandler godoc
// @Summary Registrar evento de cuidado
// @Description Registra un evento (alimentación, sueño, pañal, medicación, sólidos) en el ledger local. La metadata depende del tipo. Si falla la escritura a disco el evento igual queda registrado en memoria y la respuesta trae `persisted: false`. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags events
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID del actor"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body createEventRequest true "Tipo, metadata y occurred_at opcional (RFC3339)"
// @Success 201 {object} eventResponse
// @Failure 400 {string} string "invalid json / occurred_at inválido / metadata inválida"
// @Failure 401 {string} string "unauthorized"
// @Router /events [post]
func createEventHandler(l *Ledger, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := middleware.ActorID(r.Context())
		if actorID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var occurredAt time.Time
		if v := strings.TrimSpace(req.OccurredAt); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "occurred_at must be RFC3339", http.StatusBadRequest)
				return
			}
			occurredAt = t
		}

		m, err := DecodeMetadata(req.Type, req.Metadata)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		e, err := l.LogEventAt(r.Context(), actorID, req.Type, m, occurredAt)
		persisted := true
		switch {
		case err == nil:
		case errors.Is(err, ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, ErrPersistence):
			log.Warn("events: logged without persisting", map[string]any{"event_id": e.ID, "err": err.Error()})
			persisted = false
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp, err := toEventResponse(e)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp.Persisted = &persisted
		writeJSON(w, http.StatusCreated, resp)
	}
}

// listEventsHandler godoc
// @Summary Listar eventos
// @Description Lista los eventos del ledger, más reciente primero. Permite filtrar por tipos y rango de fechas.
// @Tags events
// @Produce json
// @Param limit query int false "Máximo de eventos a devolver (1-1000). Sin límite si se omite"
// @Param types query string false "Lista CSV de tipos de evento a incluir (ej: FEED,SLEEP)"
// @Param from query string false "Fecha/hora mínima del timestamp (RFC3339)"
// @Param to query string false "Fecha/hora máxima del timestamp (RFC3339)"
// @Success 200 {array} eventResponse
// @Failure 400 {string} string "Parámetros de filtro inválidos"
// @Router /events [get]
func listEventsHandler(l *Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseListFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items := l.List(filter)
		out := make([]eventResponse, 0, len(items))
		for _, e := range items {
			resp, err := toEventResponse(e)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			out = append(out, resp)
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// getEventHandler godoc
// @Summary Obtener evento
// @Tags events
// @Produce json
// @Param eventID path string true "ID del evento"
// @Success 200 {object} eventResponse
// @Failure 404 {string} string "event not found"
// @Router /events/{eventID} [get]
func getEventHandler(l *Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := l.Get(chi.URLParam(r, "eventID"))
		if !ok {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		resp, err := toEventResponse(e)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// deleteEventHandler godoc
// @Summary Borrar evento
// @Description Borra un evento del ledger local. Idempotente: borrar un id inexistente también responde 204. Si el evento ya estaba sincronizado, el borrado se propaga al remoto en la próxima pasada de sync.
// @Tags events
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID del actor"
// @Param Authorization header string false "Bearer token en producción"
// @Param eventID path string true "ID del evento"
// @Success 204 "borrado"
// @Success 202 {object} persistResponse "borrado en memoria, pendiente de escribir"
// @Failure 401 {string} string "unauthorized"
// @Router /events/{eventID} [delete]
func deleteEventHandler(l *Ledger, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if middleware.ActorID(r.Context()) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		eventID := chi.URLParam(r, "eventID")
		err := l.DeleteEvent(r.Context(), eventID)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, ErrPersistence):
			log.Warn("events: deleted without persisting", map[string]any{"event_id": eventID, "err": err.Error()})
			writeJSON(w, http.StatusAccepted, persistResponse{Persisted: false, Dirty: l.Dirty()})
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// persistHandler godoc
// @Summary Reintentar persistencia
// @Description Vuelve a escribir el ledger completo al store local (después de un error de escritura).
// @Tags ledger
// @Produce json
// @Success 200 {object} persistResponse
// @Failure 503 {object} persistResponse
// @Router /ledger/persist [post]
func persistHandler(l *Ledger, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := l.Persist(r.Context()); err != nil {
			log.Warn("events: persist retry failed", map[string]any{"err": err.Error()})
			writeJSON(w, http.StatusServiceUnavailable, persistResponse{Persisted: false, Dirty: l.Dirty()})
			return
		}
		writeJSON(w, http.StatusOK, persistResponse{Persisted: true, Dirty: l.Dirty()})
	}
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	var filter ListFilter

	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			return ListFilter{}, errors.New("limit must be between 1 and 1000")
		}
		filter.Limit = n
	}

	// types=FEED,SLEEP
	if v := strings.TrimSpace(r.URL.Query().Get("types")); v != "" {
		parts := strings.Split(v, ",")
		out := make([]EventType, 0, len(parts))
		for _, p := range parts {
			t := EventType(strings.ToUpper(strings.TrimSpace(p)))
			if t == "" {
				continue
			}
			if !t.Valid() {
				return ListFilter{}, errors.New("unknown event type: " + string(t))
			}
			out = append(out, t)
		}
		if len(out) > 0 {
			filter.Types = out
		}
	}

	// from/to RFC3339
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("from must be RFC3339")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("to must be RFC3339")
		}
		filter.To = &t
	}

	return filter, nil
}

func toEventResponse(e CareEvent) (eventResponse, error) {
	raw, err := EncodeMetadata(e.Metadata)
	if err != nil {
		return eventResponse{}, err
	}
	return eventResponse{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Type:       e.Type,
		Timestamp:  e.Timestamp,
		RecordedAt: e.RecordedAt,
		Metadata:   raw,
		IsSynced:   e.IsSynced,
	}, nil
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
