package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

const notificationColumns = `id, recipient_id, sender_id, type, title, message, task_id, read, email_sent, created_at`

type notificationRow struct {
	ID          uuid.UUID     `db:"id"`
	RecipientID uuid.UUID     `db:"recipient_id"`
	SenderID    uuid.NullUUID `db:"sender_id"`
	Type        string        `db:"type"`
	Title       string        `db:"title"`
	Message     string        `db:"message"`
	TaskID      uuid.NullUUID `db:"task_id"`
	Read        bool          `db:"read"`
	EmailSent   bool          `db:"email_sent"`
	CreatedAt   time.Time     `db:"created_at"`
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func toNotificationRow(n *domain.Notification) notificationRow {
	return notificationRow{
		ID:          n.ID,
		RecipientID: n.Recipient,
		SenderID:    nullableUUID(n.Sender),
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		TaskID:      nullableUUID(n.TaskID),
		Read:        n.Read,
		EmailSent:   n.EmailSent,
		CreatedAt:   n.CreatedAt,
	}
}

func (r notificationRow) toDomain() domain.Notification {
	return domain.Notification{
		ID:        r.ID,
		Recipient: r.RecipientID,
		Sender:    uuidPtr(r.SenderID),
		Type:      domain.NotificationType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		TaskID:    uuidPtr(r.TaskID),
		Read:      r.Read,
		EmailSent: r.EmailSent,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// NotificationStore implements store.NotificationStore on PostgreSQL.
type NotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewNotificationStore creates a NotificationStore. If logger is nil, slog.Default() is used.
func NewNotificationStore(db store.DBTX, logger *slog.Logger) *NotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*NotificationStore)(nil)

// WithTx implements store.NotificationStore.WithTx.
func (s *NotificationStore) WithTx(tx *sqlx.Tx) store.NotificationStore {
	return &NotificationStore{db: tx, logger: s.logger}
}

// Create implements store.NotificationStore.Create.
func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :recipient_id, :sender_id, :type, :title, :message, :task_id, :read, :email_sent, :created_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, toNotificationRow(n)); err != nil {
		log.Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", n.ID.String()),
			slog.String("recipient_id", n.Recipient.String()))
		return MapError(err)
	}

	log.Debug("notification created",
		slog.String("notification_id", n.ID.String()),
		slog.String("recipient_id", n.Recipient.String()),
		slog.String("type", string(n.Type)))
	return nil
}

// GetByID implements store.NotificationStore.GetByID.
func (s *NotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var row notificationRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return nil, MapError(err)
	}

	n := row.toDomain()
	return &n, nil
}

// ListUnread implements store.NotificationStore.ListUnread.
func (s *NotificationStore) ListUnread(
	ctx context.Context,
	recipient uuid.UUID,
	page domain.Page,
) ([]domain.Notification, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var total int
	err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`, recipient)
	if err != nil {
		log.Error("failed to count unread notifications",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipient.String()))
		return nil, 0, MapError(err)
	}

	var rows []notificationRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1 AND read = FALSE
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		recipient, page.Size, page.Offset())
	if err != nil {
		log.Error("failed to list unread notifications",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipient.String()))
		return nil, 0, MapError(err)
	}

	items := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	return items, total, nil
}

// MarkRead implements store.NotificationStore.MarkRead.
func (s *NotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to mark notification read",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// MarkAllRead implements store.NotificationStore.MarkAllRead.
func (s *NotificationStore) MarkAllRead(ctx context.Context, recipient uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND read = FALSE`, recipient)
	if err != nil {
		log.Error("failed to mark all notifications read",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipient.String()))
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Debug("notifications marked read",
		slog.String("recipient_id", recipient.String()),
		slog.Int64("count", n))
	return n, nil
}

// Delete implements store.NotificationStore.Delete.
func (s *NotificationStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// MarkEmailSent implements store.NotificationStore.MarkEmailSent.
func (s *NotificationStore) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET email_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to mark notification email sent",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return MapError(err)
	}
	return nil
}
