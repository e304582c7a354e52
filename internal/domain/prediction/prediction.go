// Package prediction deriva la presión de sueño y la próxima ventana de siesta
// a partir del ledger. Funciones puras: sin I/O, se recalculan en cada llamada.
package prediction

import (
	"math"
	"time"

	"care-ledger/internal/domain/events"
)

// DefaultAwakeWindowMinutes es el valor de configuración por defecto.
// Las funciones siempre reciben la ventana como parámetro.
const DefaultAwakeWindowMinutes = 120

// MaxAwakeWindowMinutes acota la ventana: un día completo.
const MaxAwakeWindowMinutes = 24 * 60

// ValidAwakeWindow: finita, positiva y no mayor a MaxAwakeWindowMinutes.
func ValidAwakeWindow(m float64) bool {
	return !math.IsNaN(m) && !math.IsInf(m, 0) && m > 0 && m <= MaxAwakeWindowMinutes
}

// MaxPressure es el techo de SleepPressure.
const MaxPressure = 1.2

type Zone string

const (
	ZoneCalm      Zone = "CALM"
	ZoneBuilding  Zone = "BUILDING"
	ZoneSweetSpot Zone = "SWEETSPOT"
	ZoneOvertired Zone = "OVERTIRED"
)

// SleepPressure = clamp(minutosDespierto / ventana, 0, 1.2), tomando como fin
// del último sueño el timestamp del SLEEP más reciente. Sin SLEEP o con una
// ventana inválida devuelve 0.
func SleepPressure(evs []events.CareEvent, now time.Time, awakeWindowMinutes float64) float64 {
	if !ValidAwakeWindow(awakeWindowMinutes) {
		return 0
	}
	last, ok := events.LastOfType(evs, events.EventTypeSleep)
	if !ok {
		return 0
	}
	minutesAwake := float64(now.Sub(last.Timestamp)) / float64(time.Minute)
	return clamp(minutesAwake/awakeWindowMinutes, 0, MaxPressure)
}

// NextWindow = fin del último sueño + ventana. false si no hay SLEEP o si la
// ventana es inválida.
func NextWindow(evs []events.CareEvent, awakeWindowMinutes float64) (time.Time, bool) {
	if !ValidAwakeWindow(awakeWindowMinutes) {
		return time.Time{}, false
	}
	last, ok := events.LastOfType(evs, events.EventTypeSleep)
	if !ok {
		return time.Time{}, false
	}
	return last.Timestamp.Add(time.Duration(awakeWindowMinutes * float64(time.Minute))), true
}

// Classify compara sin redondear: los límites son exactos.
func Classify(pressure float64) Zone {
	switch {
	case pressure < 0.7:
		return ZoneCalm
	case pressure < 0.9:
		return ZoneBuilding
	case pressure <= 1.0:
		return ZoneSweetSpot
	default:
		return ZoneOvertired
	}
}

// Forecast agrupa lo que muestra la UI.
type Forecast struct {
	AwakeWindowMinutes float64
	Pressure           float64
	Zone               Zone
	NextWindow         *time.Time
	LastSleep          *time.Time
}

func Estimate(evs []events.CareEvent, now time.Time, awakeWindowMinutes float64) Forecast {
	p := SleepPressure(evs, now, awakeWindowMinutes)
	f := Forecast{
		AwakeWindowMinutes: awakeWindowMinutes,
		Pressure:           p,
		Zone:               Classify(p),
	}
	if last, ok := events.LastOfType(evs, events.EventTypeSleep); ok {
		ts := last.Timestamp
		f.LastSleep = &ts
	}
	if next, ok := NextWindow(evs, awakeWindowMinutes); ok {
		f.NextWindow = &next
	}
	return f
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
