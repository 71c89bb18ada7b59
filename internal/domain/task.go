package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority indicates how urgent a task is.
type Priority string

// Possible priority values
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// TaskStatus represents where a task is in its lifecycle.
type TaskStatus string

// Possible task status values
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID          = errors.New("task ID cannot be empty")
	ErrEmptyTaskTitle       = errors.New("title is required")
	ErrEmptyTaskDescription = errors.New("description is required")
	ErrMissingDueDate       = errors.New("valid due date is required")
	ErrEmptyTaskCreator     = errors.New("task creator cannot be empty")
	ErrInvalidPriority      = errors.New("invalid task priority")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrEmptyCommentText     = errors.New("comment text is required")
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusCompleted:
		return true
	}
	return false
}

// Comment is a note left on a task.
type Comment struct {
	ID        uuid.UUID    `json:"id"`
	Text      string       `json:"text"`
	UserID    uuid.UUID    `json:"user"`
	Author    *UserSummary `json:"author,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// NewComment creates a comment authored by userID.
func NewComment(text string, userID uuid.UUID) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewValidationError("text", "is required", ErrEmptyCommentText)
	}
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	return &Comment{
		ID:        uuid.New(),
		Text:      text,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Task is a unit of work tracked by the team.
// CreatedBy is set once at creation and never changes.
type Task struct {
	ID             uuid.UUID    `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	DueDate        time.Time    `json:"dueDate"`
	Priority       Priority     `json:"priority"`
	Status         TaskStatus   `json:"status"`
	CreatedBy      uuid.UUID    `json:"createdBy"`
	AssignedTo     *uuid.UUID   `json:"assignedTo"`
	Creator        *UserSummary `json:"creator,omitempty"`
	Assignee       *UserSummary `json:"assignee,omitempty"`
	Comments       []Comment    `json:"comments"`
	ReminderSentAt *time.Time   `json:"-"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// TaskDraft carries the fields a client supplies when creating a task.
type TaskDraft struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    Priority
	Status      TaskStatus
	AssignedTo  *uuid.UUID
}

// NewTask builds a task from a draft. Priority defaults to medium and status to todo.
func NewTask(draft TaskDraft, creatorID uuid.UUID) (*Task, error) {
	if draft.Priority == "" {
		draft.Priority = PriorityMedium
	}
	if draft.Status == "" {
		draft.Status = TaskStatusTodo
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		DueDate:     draft.DueDate.UTC(),
		Priority:    draft.Priority,
		Status:      draft.Status,
		CreatedBy:   creatorID,
		AssignedTo:  draft.AssignedTo,
		Comments:    []Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.Title == "" {
		return NewValidationError("title", "is required", ErrEmptyTaskTitle)
	}
	if t.Description == "" {
		return NewValidationError("description", "is required", ErrEmptyTaskDescription)
	}
	if t.DueDate.IsZero() {
		return NewValidationError("dueDate", "is required", ErrMissingDueDate)
	}
	if t.CreatedBy == uuid.Nil {
		return ErrEmptyTaskCreator
	}
	if !t.Priority.IsValid() {
		return NewValidationError("priority", "must be one of low, medium, high, urgent", ErrInvalidPriority)
	}
	if !t.Status.IsValid() {
		return NewValidationError("status", "must be one of todo, in-progress, review, completed", ErrInvalidTaskStatus)
	}
	return nil
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// IsCompleted reports whether the task is in the completed state.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// PrependComment adds c as the newest comment.
func (t *Task) PrependComment(c Comment) {
	t.Comments = append([]Comment{c}, t.Comments...)
}

// TaskPatch is a typed partial update. Nil fields are left untouched.
// CreatedBy cannot be patched.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *Priority
	Status      *TaskStatus
	AssignedTo  *uuid.UUID
	// Unassign clears the assignee. It is ignored when AssignedTo is set.
	Unassign bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Priority == nil && p.Status == nil && p.AssignedTo == nil && !p.Unassign
}

// TaskChange describes the transitions an update produced.
type TaskChange struct {
	// Completed is true when status moved to completed from any other status.
	Completed bool
	// Reassigned is true when the assignee changed to a different, non-nil user.
	Reassigned bool
	// PreviousAssignee is the assignee before the update.
	PreviousAssignee *uuid.UUID
}

// ApplyPatch merges p into the task, re-validates it and reports the transitions.
// On error the task is left unchanged.
func (t *Task) ApplyPatch(p TaskPatch) (TaskChange, error) {
	merged := *t
	change := TaskChange{PreviousAssignee: t.AssignedTo}

	if p.Title != nil {
		merged.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		merged.Description = strings.TrimSpace(*p.Description)
	}
	if p.DueDate != nil {
		merged.DueDate = p.DueDate.UTC()
	}
	if p.Priority != nil {
		merged.Priority = *p.Priority
	}
	if p.Status != nil {
		merged.Status = *p.Status
	}
	switch {
	case p.AssignedTo != nil:
		assignee := *p.AssignedTo
		merged.AssignedTo = &assignee
	case p.Unassign:
		merged.AssignedTo = nil
		merged.Assignee = nil
	}

	if err := merged.Validate(); err != nil {
		return TaskChange{}, err
	}

	change.Completed = !t.IsCompleted() && merged.IsCompleted()
	if merged.AssignedTo != nil && !t.IsAssignedTo(*merged.AssignedTo) {
		change.Reassigned = true
		merged.Assignee = nil
	}

	merged.UpdatedAt = time.Now().UTC()
	*t = merged
	return change, nil
}

// dateOnlyLayout is accepted for due dates in addition to RFC 3339 timestamps.
const dateOnlyLayout = "2006-01-02"

// ParseDueDate parses an ISO 8601 date or timestamp.
func ParseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, NewValidationError("dueDate", "is required", ErrMissingDueDate)
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse(dateOnlyLayout, value); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, NewValidationError("dueDate", "must be a valid ISO 8601 date", ErrMissingDueDate)
}
