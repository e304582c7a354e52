package syncer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, eng *Engine) {
	r.Route("/sync", func(sr chi.Router) {
		sr.Post("/", syncHandler(eng))
		sr.Get("/status", statusHandler(eng))
	})
}

// syncResponse es el resultado de una pasada manual.
type syncResponse struct {
	Result
	Errors []string `json:"errors,omitempty"`
}

// statusResponse describe el estado del motor de sync.
type statusResponse struct {
	InFlight int    `json:"in_flight"`
	Breaker  string `json:"breaker" enums:"closed,open,half_open"`
	Pending  int    `json:"pending"`
}

// syncHandler godoc
// @Summary Sincronizar ahora
// @Description Ejecuta una pasada de sync: sube los eventos no sincronizados y propaga los borrados. Los fallos por evento no son errores HTTP: quedan pendientes para la próxima pasada y se informan en el resultado.
// @Tags sync
// @Produce json
// @Success 200 {object} syncResponse
// @Failure 503 {string} string "sync circuit open"
// @Router /sync [post]
func syncHandler(eng *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := eng.SyncOnce(r.Context())
		if errors.Is(err, ErrCircuitOpen) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := syncResponse{Result: res}
		for _, e := range res.Failures {
			out.Errors = append(out.Errors, e.Error())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// statusHandler godoc
// @Summary Estado del sync
// @Tags sync
// @Produce json
// @Success 200 {object} statusResponse
// @Router /sync/status [get]
func statusHandler(eng *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{
			InFlight: eng.InFlight(),
			Breaker:  eng.breaker.State().String(),
			Pending:  len(eng.ledger.Unsynced()) + len(eng.ledger.Tombstones()),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
