package details

import "errors"

type DiaperKind string

const (
	DiaperKindWet   DiaperKind = "wet"
	DiaperKindDirty DiaperKind = "dirty"
	DiaperKindMixed DiaperKind = "mixed"
	DiaperKindDry   DiaperKind = "dry"
)

type Diaper struct {
	Kind DiaperKind `json:"kind"`
}

func (d Diaper) Validate() error {
	switch d.Kind {
	case DiaperKindWet, DiaperKindDirty, DiaperKindMixed, DiaperKindDry:
		return nil
	case "":
		return errors.New("diaper: kind required")
	default:
		return errors.New("diaper: unknown kind")
	}
}
