package policy

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCanPerform(t *testing.T) {
	creator := domain.Actor{ID: uuid.New(), Role: domain.RoleManager}
	assignee := domain.Actor{ID: uuid.New(), Role: domain.RoleUser}
	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleUser}
	admin := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	anonymous := domain.Actor{}

	assigneeID := assignee.ID
	task := &domain.Task{ID: uuid.New(), CreatedBy: creator.ID, AssignedTo: &assigneeID}
	unassigned := &domain.Task{ID: uuid.New(), CreatedBy: creator.ID}
	notification := &domain.Notification{ID: uuid.New(), Recipient: assignee.ID}

	tests := []struct {
		name    string
		actor   domain.Actor
		action  Action
		target  Target
		allowed bool
		reason  string
	}{
		{"anyone creates", stranger, CreateTask, Target{}, true, ""},
		{"anyone comments", stranger, AddComment, Target{Task: task}, true, ""},
		{"anonymous denied create", anonymous, CreateTask, Target{}, false, ReasonUnauthenticated},
		{"creator updates", creator, UpdateTask, Target{Task: task}, true, ""},
		{"assignee updates", assignee, UpdateTask, Target{Task: task}, true, ""},
		{"admin updates", admin, UpdateTask, Target{Task: task}, true, ""},
		{"stranger cannot update", stranger, UpdateTask, Target{Task: task}, false, ReasonNotAuthorized},
		{"stranger cannot update unassigned", stranger, UpdateTask, Target{Task: unassigned}, false, ReasonNotAuthorized},
		{"assignee assigns", assignee, AssignTask, Target{Task: task}, true, ""},
		{"stranger cannot assign", stranger, AssignTask, Target{Task: task}, false, ReasonNotAuthorized},
		{"creator deletes", creator, DeleteTask, Target{Task: task}, true, ""},
		{"admin deletes", admin, DeleteTask, Target{Task: task}, true, ""},
		{"assignee cannot delete", assignee, DeleteTask, Target{Task: task}, false, ReasonNotAuthorized},
		{"manager role is not admin", domain.Actor{ID: uuid.New(), Role: domain.RoleManager}, DeleteTask, Target{Task: task}, false, ReasonNotAuthorized},
		{"update without task", creator, UpdateTask, Target{}, false, ReasonMissingTarget},
		{"recipient marks read", assignee, MarkNotificationRead, Target{Notification: notification}, true, ""},
		{"recipient deletes", assignee, DeleteNotification, Target{Notification: notification}, true, ""},
		{"admin cannot read others", admin, MarkNotificationRead, Target{Notification: notification}, false, ReasonNotAuthorized},
		{"creator cannot delete others", creator, DeleteNotification, Target{Notification: notification}, false, ReasonNotAuthorized},
		{"unknown action", creator, Action("archive_task"), Target{Task: task}, false, ReasonUnknownAction},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := CanPerform(tc.actor, tc.action, tc.target)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := Decision{Reason: ReasonNotAuthorized}.Err()
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.Contains(t, err.Error(), ReasonNotAuthorized)
}
