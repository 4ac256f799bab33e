package model

import "time"

// EventKind: вид изменения кейса, публикуемого в NATS
type EventKind string

const (
	EventCreated       EventKind = "created"
	EventStatusUpdated EventKind = "status_updated"
	EventDeleted       EventKind = "deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventStatusUpdated, EventDeleted:
		return true
	}
	return false
}

// CaseEvent: снимок кейса после изменения
type CaseEvent struct {
	Kind       EventKind `json:"kind"`
	Case       Case      `json:"case"`
	OccurredAt time.Time `json:"occurred_at"`
}
