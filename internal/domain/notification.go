package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies the event a notification was raised for.
type NotificationType string

// Possible notification types
const (
	NotificationTaskAssigned       NotificationType = "task_assigned"
	NotificationTaskUpdated        NotificationType = "task_updated"
	NotificationTaskCompleted      NotificationType = "task_completed"
	NotificationCommentAdded       NotificationType = "comment_added"
	NotificationDueDateApproaching NotificationType = "due_date_approaching"
)

// Common validation errors for Notification
var (
	ErrEmptyNotificationID      = errors.New("notification ID cannot be empty")
	ErrEmptyRecipient           = errors.New("notification recipient cannot be empty")
	ErrInvalidNotificationType  = errors.New("invalid notification type")
	ErrEmptyNotificationTitle   = errors.New("notification title cannot be empty")
	ErrEmptyNotificationMessage = errors.New("notification message cannot be empty")
)

// IsValid reports whether t is a known notification type.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTaskAssigned, NotificationTaskUpdated, NotificationTaskCompleted,
		NotificationCommentAdded, NotificationDueDateApproaching:
		return true
	}
	return false
}

// Notification is a persisted message to one recipient about a task event.
// Sender is nil for system-generated notifications.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Recipient uuid.UUID        `json:"recipient"`
	Sender    *uuid.UUID       `json:"sender"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	TaskID    *uuid.UUID       `json:"task"`
	Read      bool             `json:"read"`
	EmailSent bool             `json:"emailSent"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewNotification creates an unread notification.
func NewNotification(
	recipient uuid.UUID,
	sender *uuid.UUID,
	notificationType NotificationType,
	title, message string,
	taskID *uuid.UUID,
) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		Recipient: recipient,
		Sender:    sender,
		Type:      notificationType,
		Title:     strings.TrimSpace(title),
		Message:   strings.TrimSpace(message),
		TaskID:    taskID,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNotificationID
	}
	if n.Recipient == uuid.Nil {
		return ErrEmptyRecipient
	}
	if !n.Type.IsValid() {
		return NewValidationError("type", "is invalid", ErrInvalidNotificationType)
	}
	if n.Title == "" {
		return NewValidationError("title", "is required", ErrEmptyNotificationTitle)
	}
	if n.Message == "" {
		return NewValidationError("message", "is required", ErrEmptyNotificationMessage)
	}
	return nil
}

// IsRecipient reports whether userID owns the notification.
func (n *Notification) IsRecipient(userID uuid.UUID) bool {
	return n.Recipient == userID
}
