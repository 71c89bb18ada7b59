// Package policy decides whether an actor may perform an action on a task or
// notification. Decisions are pure: no I/O and no side effects.
package policy

import (
	"fmt"

	"github.com/phrazzld/teamtasks-api/internal/domain"
)

// Action names an operation subject to authorization.
type Action string

// Authorized actions
const (
	CreateTask           Action = "create_task"
	ReadTask             Action = "read_task"
	UpdateTask           Action = "update_task"
	DeleteTask           Action = "delete_task"
	AssignTask           Action = "assign_task"
	AddComment           Action = "add_comment"
	MarkNotificationRead Action = "mark_notification_read"
	DeleteNotification   Action = "delete_notification"
)

// Deny reasons
const (
	ReasonUnauthenticated = "not_authenticated"
	ReasonNotAuthorized   = "not_authorized"
	ReasonMissingTarget   = "missing_target"
	ReasonUnknownAction   = "unknown_action"
)

// Target is the entity an action applies to. Only the field relevant to the
// action needs to be set.
type Target struct {
	Task         *domain.Task
	Notification *domain.Notification
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for an allowed decision and an error wrapping
// domain.ErrUnauthorized otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrUnauthorized, d.Reason)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// CanPerform reports whether actor may perform action on target.
func CanPerform(actor domain.Actor, action Action, target Target) Decision {
	if !actor.IsAuthenticated() {
		return deny(ReasonUnauthenticated)
	}

	switch action {
	case CreateTask, ReadTask, AddComment:
		return allow()

	case UpdateTask, AssignTask:
		if target.Task == nil {
			return deny(ReasonMissingTarget)
		}
		if actor.IsAdmin() || target.Task.CreatedBy == actor.ID || target.Task.IsAssignedTo(actor.ID) {
			return allow()
		}
		return deny(ReasonNotAuthorized)

	case DeleteTask:
		if target.Task == nil {
			return deny(ReasonMissingTarget)
		}
		if actor.IsAdmin() || target.Task.CreatedBy == actor.ID {
			return allow()
		}
		return deny(ReasonNotAuthorized)

	case MarkNotificationRead, DeleteNotification:
		if target.Notification == nil {
			return deny(ReasonMissingTarget)
		}
		if target.Notification.IsRecipient(actor.ID) {
			return allow()
		}
		return deny(ReasonNotAuthorized)
	}

	return deny(ReasonUnknownAction)
}
