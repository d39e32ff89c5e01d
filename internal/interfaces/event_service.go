package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventServerLog is published for every server event accepted by the log queue
	EventServerLog EventType = "server_event"
	// EventAuditLog is published after an audit event is recorded
	EventAuditLog EventType = "audit_event"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type, returning a token for Unsubscribe
	Subscribe(eventType EventType, handler EventHandler) (SubscriptionID, error)

	// Unsubscribe removes the handler registered under id
	Unsubscribe(eventType EventType, id SubscriptionID) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}

// SubscriptionID identifies a registered handler
type SubscriptionID uint64
