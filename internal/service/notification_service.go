package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/domain/policy"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// NotificationPage is one page of unread notifications.
type NotificationPage struct {
	Items      []domain.Notification
	Total      int
	Pagination domain.Pagination
}

// NotificationService lets a recipient read and manage their notifications.
type NotificationService interface {
	// ListUnread returns one page of the actor's unread notifications, newest first.
	ListUnread(ctx context.Context, actor domain.Actor, page domain.Page) (*NotificationPage, error)

	// MarkRead marks one of the actor's notifications as read.
	MarkRead(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Notification, error)

	// MarkAllRead marks every unread notification of the actor as read.
	MarkAllRead(ctx context.Context, actor domain.Actor) (int64, error)

	// Delete removes one of the actor's notifications.
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error

	// UpdatePreferences changes the actor's notification preferences.
	UpdatePreferences(
		ctx context.Context,
		actor domain.Actor,
		patch domain.PreferencesPatch,
	) (domain.NotificationPreferences, error)
}

type notificationServiceImpl struct {
	notifications store.NotificationStore
	users         store.UserStore
	logger        *slog.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(
	notifications store.NotificationStore,
	users store.UserStore,
	logger *slog.Logger,
) NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationServiceImpl{
		notifications: notifications,
		users:         users,
		logger:        logger.With(slog.String("component", "notification_service")),
	}
}

func (s *notificationServiceImpl) ListUnread(
	ctx context.Context,
	actor domain.Actor,
	page domain.Page,
) (*NotificationPage, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrNotAuthorized
	}

	page = domain.NewPage(page.Number, page.Size)
	items, total, err := s.notifications.ListUnread(ctx, actor.ID, page)
	if err != nil {
		return nil, translateError("list_notifications", "failed to list notifications", err)
	}

	return &NotificationPage{
		Items:      items,
		Total:      total,
		Pagination: page.Paginate(total),
	}, nil
}

// owned fetches a notification and checks that actor may perform action on it.
func (s *notificationServiceImpl) owned(
	ctx context.Context,
	actor domain.Actor,
	action policy.Action,
	id uuid.UUID,
) (*domain.Notification, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, action, policy.Target{Notification: n}); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("notification access denied",
			slog.String("notification_id", id.String()),
			slog.String("user_id", actor.ID.String()))
		return nil, err
	}
	return n, nil
}

func (s *notificationServiceImpl) MarkRead(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
) (*domain.Notification, error) {
	n, err := s.owned(ctx, actor, policy.MarkNotificationRead, id)
	if err != nil {
		return nil, translateError("mark_notification_read", "failed to get notification", err)
	}

	if !n.Read {
		if err := s.notifications.MarkRead(ctx, id); err != nil {
			return nil, translateError("mark_notification_read", "failed to mark notification read", err)
		}
		n.Read = true
	}
	return n, nil
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, actor domain.Actor) (int64, error) {
	if !actor.IsAuthenticated() {
		return 0, ErrNotAuthorized
	}

	n, err := s.notifications.MarkAllRead(ctx, actor.ID)
	if err != nil {
		return 0, translateError("mark_all_notifications_read", "failed to mark notifications read", err)
	}
	return n, nil
}

func (s *notificationServiceImpl) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, policy.DeleteNotification, id); err != nil {
		return translateError("delete_notification", "failed to get notification", err)
	}

	if err := s.notifications.Delete(ctx, id); err != nil {
		return translateError("delete_notification", "failed to delete notification", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("notification deleted",
		slog.String("notification_id", id.String()))
	return nil
}

func (s *notificationServiceImpl) UpdatePreferences(
	ctx context.Context,
	actor domain.Actor,
	patch domain.PreferencesPatch,
) (domain.NotificationPreferences, error) {
	if !actor.IsAuthenticated() {
		return domain.NotificationPreferences{}, ErrNotAuthorized
	}

	prefs, err := s.users.UpdatePreferences(ctx, actor.ID, patch)
	if err != nil {
		return domain.NotificationPreferences{}, translateError(
			"update_preferences", "failed to update notification preferences", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("notification preferences updated",
		slog.String("user_id", actor.ID.String()),
		slog.Bool("email", prefs.Email),
		slog.Bool("in_app", prefs.InApp),
		slog.Bool("muted", prefs.Muted))
	return prefs, nil
}
