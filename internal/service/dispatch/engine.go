package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/events"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// EmailRequest is an email copy of one notification.
type EmailRequest struct {
	NotificationID uuid.UUID `json:"notification_id"`
	ToName         string    `json:"to_name"`
	To             string    `json:"to"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
}

// Batch holds the side effects of one or more task events.
type Batch struct {
	Notifications []domain.Notification
	Emails        []EmailRequest
}

// Merge appends the contents of other to b.
func (b *Batch) Merge(other Batch) {
	b.Notifications = append(b.Notifications, other.Notifications...)
	b.Emails = append(b.Emails, other.Emails...)
}

// IsEmpty reports whether the batch has nothing to publish.
func (b Batch) IsEmpty() bool {
	return len(b.Notifications) == 0 && len(b.Emails) == 0
}

// notice is the content of a notification before a recipient is attached.
type notice struct {
	kind    domain.NotificationType
	title   string
	message string
	subject string
	// body renders the email body given the acting user's name.
	body func(actorName string) string
}

// Engine derives notifications from task events.
type Engine struct {
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewEngine creates an Engine that publishes to emitter.
func NewEngine(emitter events.EventEmitter, logger *slog.Logger) *Engine {
	if emitter == nil {
		panic("emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		emitter: emitter,
		logger:  logger.With(slog.String("component", "dispatch_engine")),
	}
}

// TaskCreated notifies the assignee of a newly created task.
func (e *Engine) TaskCreated(
	ctx context.Context,
	s store.Stores,
	actor domain.Actor,
	task *domain.Task,
) (Batch, error) {
	if task.AssignedTo == nil {
		return Batch{}, nil
	}
	return e.deliver(ctx, s, actor, task, newTaskAssignedNotice(task), *task.AssignedTo)
}

// TaskUpdated notifies the creator when the update completed the task and the
// new assignee when it reassigned the task.
func (e *Engine) TaskUpdated(
	ctx context.Context,
	s store.Stores,
	actor domain.Actor,
	task *domain.Task,
	change domain.TaskChange,
) (Batch, error) {
	var batch Batch

	if change.Completed {
		b, err := e.deliver(ctx, s, actor, task, taskCompletedNotice(task), task.CreatedBy)
		if err != nil {
			return Batch{}, err
		}
		batch.Merge(b)
	}

	if change.Reassigned && task.AssignedTo != nil {
		b, err := e.deliver(ctx, s, actor, task, taskAssignedNotice(task), *task.AssignedTo)
		if err != nil {
			return Batch{}, err
		}
		batch.Merge(b)
	}

	return batch, nil
}

// TaskAssigned notifies the assignee of an explicit assignment, even when the
// task was already assigned to them.
func (e *Engine) TaskAssigned(
	ctx context.Context,
	s store.Stores,
	actor domain.Actor,
	task *domain.Task,
) (Batch, error) {
	if task.AssignedTo == nil {
		return Batch{}, nil
	}
	return e.deliver(ctx, s, actor, task, taskAssignedNotice(task), *task.AssignedTo)
}

// CommentAdded notifies the assignee and the creator of a new comment.
// A user who is both receives a single notification.
func (e *Engine) CommentAdded(
	ctx context.Context,
	s store.Stores,
	actor domain.Actor,
	task *domain.Task,
	comment *domain.Comment,
) (Batch, error) {
	recipients := make([]uuid.UUID, 0, 2)
	if task.AssignedTo != nil {
		recipients = append(recipients, *task.AssignedTo)
	}
	recipients = append(recipients, task.CreatedBy)
	return e.deliver(ctx, s, actor, task, commentAddedNotice(task, comment), recipients...)
}

// DueSoon creates a system notification for the assignee of a task whose due
// date is approaching.
func (e *Engine) DueSoon(ctx context.Context, s store.Stores, task *domain.Task) (Batch, error) {
	if task.AssignedTo == nil {
		return Batch{}, nil
	}
	return e.deliver(ctx, s, domain.Actor{}, task, dueSoonNotice(task), *task.AssignedTo)
}

// deliver stores one notification per distinct recipient other than the actor
// whose preferences allow it, and queues an email copy where wanted.
func (e *Engine) deliver(
	ctx context.Context,
	s store.Stores,
	actor domain.Actor,
	task *domain.Task,
	n notice,
	recipients ...uuid.UUID,
) (Batch, error) {
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("task_id", task.ID.String()),
		slog.String("notification_type", string(n.kind)),
	)

	var sender *uuid.UUID
	if actor.IsAuthenticated() {
		id := actor.ID
		sender = &id
	}
	taskID := task.ID

	var (
		batch     Batch
		seen      = make(map[uuid.UUID]bool, len(recipients))
		actorName string
		nameKnown bool
	)

	for _, recipientID := range recipients {
		if recipientID == uuid.Nil || seen[recipientID] || recipientID == actor.ID {
			continue
		}
		seen[recipientID] = true

		recipient, err := s.Users.GetByID(ctx, recipientID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				log.Warn("notification recipient no longer exists",
					slog.String("recipient_id", recipientID.String()))
				continue
			}
			return Batch{}, fmt.Errorf("failed to load recipient: %w", err)
		}

		if !recipient.Preferences.WantsNotification() {
			log.Debug("recipient has muted notifications",
				slog.String("recipient_id", recipientID.String()))
			continue
		}

		notification, err := domain.NewNotification(recipientID, sender, n.kind, n.title, n.message, &taskID)
		if err != nil {
			return Batch{}, fmt.Errorf("failed to build notification: %w", err)
		}
		if err := s.Notifications.Create(ctx, notification); err != nil {
			return Batch{}, fmt.Errorf("failed to store notification: %w", err)
		}
		batch.Notifications = append(batch.Notifications, *notification)

		if !recipient.Preferences.WantsEmail() {
			continue
		}
		if !nameKnown {
			actorName = e.actorName(ctx, s, actor)
			nameKnown = true
		}
		batch.Emails = append(batch.Emails, EmailRequest{
			NotificationID: notification.ID,
			ToName:         recipient.Name,
			To:             recipient.Email,
			Subject:        n.subject,
			Body:           n.body(actorName),
		})
	}

	return batch, nil
}

// actorName looks up the display name used in email bylines. A failed lookup
// only drops the byline.
func (e *Engine) actorName(ctx context.Context, s store.Stores, actor domain.Actor) string {
	if !actor.IsAuthenticated() {
		return ""
	}
	u, err := s.Users.GetByID(ctx, actor.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, e.logger).Warn("failed to load actor for email byline",
			slog.String("actor_id", actor.ID.String()),
			slog.String("error", err.Error()))
		return ""
	}
	return u.Name
}

// Publish emits the batch after its transaction has committed. Failures are
// logged and never returned. The batch is emitted even if ctx has been
// canceled, since the notifications it describes are already stored.
func (e *Engine) Publish(ctx context.Context, batch Batch) {
	if batch.IsEmpty() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := logger.FromContextOrDefault(ctx, e.logger)

	for i := range batch.Notifications {
		e.emit(ctx, log, events.TypeNotificationCreated, &batch.Notifications[i])
	}
	for _, req := range batch.Emails {
		e.emit(ctx, log, events.TypeEmailRequested, req)
	}
}

func (e *Engine) emit(ctx context.Context, log *slog.Logger, eventType string, payload any) {
	event, err := events.NewNotificationEvent(eventType, payload)
	if err != nil {
		log.Error("failed to build notification event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("notification event handler failed",
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}
