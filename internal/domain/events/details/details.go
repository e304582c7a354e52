// Package details define la metadata de cada tipo de evento.
package details

import (
	"errors"
	"math"
)

// errNotFinite: NaN o ±Inf no se pueden serializar en el documento.
var errNotFinite = errors.New("numeric fields must be finite")

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
