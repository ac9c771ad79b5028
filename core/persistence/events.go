package persistence

import (
	"context"
	"fmt"

	"github.com/asaidimu/go-events"

	"github.com/asaidimu/go-daybed/core/schema"
)

// EventType defines the possible event types for store backed operations.
type EventType string

const (
	ModelDefineSuccess  EventType = "model:define:success"
	ModelDefineFailed   EventType = "model:define:failed"
	RecordCreateSuccess EventType = "record:create:success"
	RecordCreateFailed  EventType = "record:create:failed"
)

// EventTypes lists every event type emitted on the bus.
var EventTypes = []EventType{
	ModelDefineSuccess,
	ModelDefineFailed,
	RecordCreateSuccess,
	RecordCreateFailed,
}

// Event describes the outcome of a definition or record write.
type Event struct {
	Type      EventType      `json:"type"`                // The type of event (e.g., 'record:create:success').
	Timestamp int64          `json:"timestamp"`           // When the event occurred (Unix milliseconds).
	Operation string         `json:"operation"`           // The operation performed ('define', 'create').
	Model     string         `json:"model"`               // Name of the model affected.
	RecordID  string         `json:"recordId,omitempty"`  // Id of the created record, if any.
	Created   bool           `json:"created,omitempty"`   // Whether a definition write claimed a new model.
	Error     *string        `json:"error,omitempty"`     // Error message if the operation failed.
	Issues    []schema.Issue `json:"issues,omitempty"`    // Issues that caused the operation to fail.
	Duration  *int64         `json:"duration,omitempty"`  // Duration of the operation in milliseconds.
}

// EventCallbackFunction is invoked for every event a subscription matches.
type EventCallbackFunction func(ctx context.Context, event Event) error

// EventBus publishes store events to subscribers.
type EventBus struct {
	bus *events.TypedEventBus[Event]
}

// NewEventBus creates an event bus with the default configuration.
func NewEventBus() (*EventBus, error) {
	bus, err := events.NewTypedEventBus[Event](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}
	return &EventBus{bus: bus}, nil
}

// Emit publishes event. Emitting on a nil bus is a no-op.
func (b *EventBus) Emit(event Event) {
	if b == nil || b.bus == nil {
		return
	}
	b.bus.Emit(string(event.Type), event)
}

// Subscribe registers callback for eventType and returns a function removing
// the subscription.
func (b *EventBus) Subscribe(eventType EventType, callback EventCallbackFunction) func() {
	return b.bus.Subscribe(string(eventType), callback)
}

// SubscribeAll registers callback for every event type.
func (b *EventBus) SubscribeAll(callback EventCallbackFunction) func() {
	unsubscribers := make([]func(), 0, len(EventTypes))
	for _, eventType := range EventTypes {
		unsubscribers = append(unsubscribers, b.Subscribe(eventType, callback))
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}
