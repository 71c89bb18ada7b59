package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
)

// NotificationStore defines the interface for notification persistence.
// Recipient, type and task of a stored notification never change; only the
// read and email-sent flags do, and only from false to true.
type NotificationStore interface {
	// Create saves a new notification.
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID retrieves a notification.
	// Returns ErrNotificationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// ListUnread returns one page of the recipient's unread notifications,
	// newest first, and the total number of unread notifications.
	ListUnread(ctx context.Context, recipient uuid.UUID, page domain.Page) ([]domain.Notification, int, error)

	// MarkRead sets the read flag. Marking an already read notification is a no-op.
	// Returns ErrNotificationNotFound if it does not exist.
	MarkRead(ctx context.Context, id uuid.UUID) error

	// MarkAllRead marks every unread notification of recipient as read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, recipient uuid.UUID) (int64, error)

	// Delete removes a notification.
	// Returns ErrNotificationNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// MarkEmailSent records that the notification email went out.
	// A notification deleted in the meantime is not an error.
	MarkEmailSent(ctx context.Context, id uuid.UUID) error

	// WithTx returns a NotificationStore that runs its queries inside tx.
	WithTx(tx *sqlx.Tx) NotificationStore
}
