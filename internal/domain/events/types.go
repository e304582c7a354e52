package events

import "time"

type EventType string

const (
	EventTypeFeed       EventType = "FEED"
	EventTypeSleep      EventType = "SLEEP"
	EventTypeDiaper     EventType = "DIAPER"
	EventTypeMedication EventType = "MEDICATION"
	EventTypeSolid      EventType = "SOLID"
)

// AllEventTypes en el orden en que se muestran.
var AllEventTypes = []EventType{
	EventTypeFeed,
	EventTypeSleep,
	EventTypeDiaper,
	EventTypeMedication,
	EventTypeSolid,
}

func (t EventType) Valid() bool {
	switch t {
	case EventTypeFeed, EventTypeSleep, EventTypeDiaper, EventTypeMedication, EventTypeSolid:
		return true
	default:
		return false
	}
}

type ListFilter struct {
	Types []EventType
	From  *time.Time
	To    *time.Time
	Limit int // 0 = sin límite
}
