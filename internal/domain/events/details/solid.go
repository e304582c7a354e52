package details

import (
	"errors"
	"fmt"
	"strings"
)

// Solid modela una comida sólida (introducción de alimentos).
type Solid struct {
	Food        string  `json:"food"`
	AmountGrams float64 `json:"amount_grams,omitempty"`
}

func (s Solid) Validate() error {
	if strings.TrimSpace(s.Food) == "" {
		return errors.New("solid: food required")
	}
	if !finite(s.AmountGrams) {
		return fmt.Errorf("solid: %w", errNotFinite)
	}
	if s.AmountGrams < 0 {
		return errors.New("solid: negative amount")
	}
	return nil
}
