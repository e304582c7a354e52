package details

import (
	"errors"
	"fmt"
	"strings"
)

type Medication struct {
	Name string  `json:"name"`
	Dose float64 `json:"dose,omitempty"`
	Unit string  `json:"unit,omitempty"` // "ml", "mg", "drops"
}

func (m Medication) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("medication: name required")
	}
	if !finite(m.Dose) {
		return fmt.Errorf("medication: %w", errNotFinite)
	}
	if m.Dose < 0 {
		return errors.New("medication: negative dose")
	}
	return nil
}
