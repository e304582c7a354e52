package details

import (
	"errors"
	"fmt"
)

type Sleep struct {
	DurationMinutes float64 `json:"duration_minutes"`
	Location        string  `json:"location,omitempty"` // "crib", "stroller", etc.
}

func (s Sleep) Validate() error {
	if !finite(s.DurationMinutes) {
		return fmt.Errorf("sleep: %w", errNotFinite)
	}
	if s.DurationMinutes <= 0 {
		return errors.New("sleep: duration_minutes must be positive")
	}
	return nil
}
