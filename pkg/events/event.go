// Package events defines the envelope published on the NATS lifecycle bus.
package events

import "time"

// Event is the contract for anything published on the bus.
type Event interface {
	// EventType returns the event code, e.g. "COURSE_SESSION_STARTED".
	EventType() string

	// Payload returns the event data.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used for lifecycle events.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string { return e.Type }

func (e BaseEvent) Payload() map[string]interface{} { return e.Data }

func (e BaseEvent) Timestamp() time.Time { return e.OccurredAt }
