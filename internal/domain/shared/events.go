// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Observers never receive state in an event: every
// handler reloads the full AppState on its own.
const (
	// EventStateUpdated fires after every successful store update.
	EventStateUpdated EventType = "state.updated"

	// EventReportCompleted fires when an AI report reaches its terminal state.
	EventReportCompleted EventType = "report.completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// State Events
// ═══════════════════════════════════════════════════════════════════════════

// StateUpdatedEvent is the "state changed" broadcast. It carries no payload;
// the aggregate ID is the storage key that was rewritten.
type StateUpdatedEvent struct {
	BaseEvent
}

// Payload implements Event interface.
func (e StateUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewStateUpdatedEvent creates a new StateUpdatedEvent.
func NewStateUpdatedEvent(storageKey string) StateUpdatedEvent {
	return StateUpdatedEvent{BaseEvent: NewBaseEvent(EventStateUpdated, storageKey)}
}

// ═══════════════════════════════════════════════════════════════════════════
// Report Events
// ═══════════════════════════════════════════════════════════════════════════

// ReportCompletedEvent is emitted once per non-superseded report request.
type ReportCompletedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Outcome   string `json:"outcome"`
}

// Payload implements Event interface.
func (e ReportCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"request_id": e.RequestID,
		"outcome":    e.Outcome,
	}
}

// NewReportCompletedEvent creates a new ReportCompletedEvent keyed by student.
func NewReportCompletedEvent(studentID, requestID, outcome string) ReportCompletedEvent {
	return ReportCompletedEvent{
		BaseEvent: NewBaseEvent(EventReportCompleted, studentID),
		RequestID: requestID,
		Outcome:   outcome,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// SubscriptionID identifies a registered handler so it can be removed again.
type SubscriptionID uint64

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) (SubscriptionID, error)

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) (SubscriptionID, error)

	// Unsubscribe removes a handler. Unknown IDs are ignored.
	Unsubscribe(id SubscriptionID)
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
