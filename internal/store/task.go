package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
)

// TaskOrder selects the sort order of a task listing.
type TaskOrder int

const (
	// OrderNewestFirst sorts by creation time, newest first.
	OrderNewestFirst TaskOrder = iota
	// OrderDueSoonest sorts by due date, earliest first.
	OrderDueSoonest
)

// TaskFilter narrows a task listing. Zero-valued fields do not filter.
// Due date bounds are half-open: DueFrom <= due_date < DueBefore.
type TaskFilter struct {
	Status           *domain.TaskStatus
	Priority         *domain.Priority
	AssignedTo       *uuid.UUID
	CreatedBy        *uuid.UUID
	DueFrom          *time.Time
	DueBefore        *time.Time
	ExcludeCompleted bool
	Order            TaskOrder
}

// ApplyDueBucket sets the due date bounds for bucket relative to now.
// The overdue bucket also excludes completed tasks.
func (f *TaskFilter) ApplyDueBucket(bucket domain.DueBucket, now time.Time) {
	if bucket == "" {
		return
	}
	from, to := bucket.Bounds(now)
	if !from.IsZero() {
		f.DueFrom = &from
	}
	f.DueBefore = &to
	if bucket == domain.DueOverdue {
		f.ExcludeCompleted = true
	}
}

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task. Returns ErrInvalidEntity if the task fails validation.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task with its comments and the creator/assignee summaries.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetForUpdate retrieves a task and locks its row until the surrounding
	// transaction ends. Returns ErrTaskNotFound if the task does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns one page of tasks matching filter and the total number of matches.
	// A zero Page returns every match.
	List(ctx context.Context, filter TaskFilter, page domain.Page) ([]domain.Task, int, error)

	// Update persists the mutable fields of an existing task. CreatedBy is never written.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task and its comments.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Search returns tasks assigned to assigneeID that match query, most relevant first.
	Search(ctx context.Context, query string, assigneeID uuid.UUID) ([]domain.Task, error)

	// AddComment stores a comment on a task and returns all comments, newest first.
	// Returns ErrTaskNotFound if the task does not exist.
	AddComment(ctx context.Context, taskID uuid.UUID, comment *domain.Comment) ([]domain.Comment, error)

	// ListDueForReminder returns assigned, non-completed tasks due in [from, to)
	// that have not had a reminder yet.
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]domain.Task, error)

	// ClaimReminder records that a due date reminder is being issued for a task.
	// It reports false when another caller already claimed it.
	ClaimReminder(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// WithTx returns a TaskStore that runs its queries inside tx.
	WithTx(tx *sqlx.Tx) TaskStore
}
