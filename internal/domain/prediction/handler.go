package prediction

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"care-ledger/internal/domain/events"
)

// EventSource es la vista del ledger que necesita la predicción.
type EventSource interface {
	InsertionOrder() []events.CareEvent
}

// WindowFunc devuelve la ventana de vigilia configurada (puede cambiar en caliente).
type WindowFunc func() float64

func RegisterRoutes(r chi.Router, src EventSource, window WindowFunc, now func() time.Time) {
	if window == nil {
		window = func() float64 { return DefaultAwakeWindowMinutes }
	}
	if now == nil {
		now = time.Now
	}
	r.Get("/prediction", predictionHandler(src, window, now))
}

// forecastResponse es la predicción de sueño devuelta por la API.
type forecastResponse struct {
	AwakeWindowMinutes float64    `json:"awake_window_minutes"`
	Pressure           float64    `json:"pressure"`
	Zone               Zone       `json:"zone" enums:"CALM,BUILDING,SWEETSPOT,OVERTIRED"`
	NextWindow         *time.Time `json:"next_window,omitempty"`
	LastSleep          *time.Time `json:"last_sleep,omitempty"`
	ComputedAt         time.Time  `json:"computed_at"`
}

// predictionHandler godoc
// @Summary Presión de sueño y próxima ventana
// @Description Calcula la presión de sueño actual (0 a 1.2), su zona y la próxima ventana de siesta a partir del último evento SLEEP. Sin eventos SLEEP la presión es 0 y no hay ventana.
// @Tags prediction
// @Produce json
// @Param awake_window_minutes query number false "Ventana de vigilia en minutos (por defecto la configurada)"
// @Success 200 {object} forecastResponse
// @Failure 400 {string} string "awake_window_minutes inválido"
// @Router /prediction [get]
func predictionHandler(src EventSource, window WindowFunc, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aw := window()
		if v := strings.TrimSpace(r.URL.Query().Get("awake_window_minutes")); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || !ValidAwakeWindow(f) {
				http.Error(w, "awake_window_minutes must be a number in (0, 1440]", http.StatusBadRequest)
				return
			}
			aw = f
		}

		at := now()
		f := Estimate(src.InsertionOrder(), at, aw)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(forecastResponse{
			AwakeWindowMinutes: f.AwakeWindowMinutes,
			Pressure:           f.Pressure,
			Zone:               f.Zone,
			NextWindow:         f.NextWindow,
			LastSleep:          f.LastSleep,
			ComputedAt:         at,
		})
	}
}
