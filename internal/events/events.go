package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published after a notification-producing transaction commits.
const (
	// TypeNotificationCreated announces a stored in-app notification.
	TypeNotificationCreated = "notification.created"

	// TypeEmailRequested asks for an email copy of a notification to be delivered.
	TypeEmailRequested = "notification.email_requested"
)

// NotificationEvent is a post-commit message describing a notification side effect.
// The payload is kept as raw JSON so emitters never depend on handler packages.
type NotificationEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *NotificationEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewNotificationEvent creates a NotificationEvent with the given type and payload.
func NewNotificationEvent(eventType string, payload any) (*NotificationEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &NotificationEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler is implemented by components reacting to notification events.
type EventHandler interface {
	// HandleEvent processes the event. Handlers ignore event types they do not own.
	HandleEvent(ctx context.Context, event *NotificationEvent) error
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	// EmitEvent publishes the event to all registered handlers.
	EmitEvent(ctx context.Context, event *NotificationEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *NotificationEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *NotificationEvent) error {
	return f(ctx, event)
}
