package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a job
type Status string

// Possible job status values
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is a unit of background work.
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Type returns the job type used to rehydrate it after a restart
	Type() string

	// Payload returns the job data persisted alongside it
	Payload() []byte

	// Execute runs the job
	Execute(ctx context.Context) error
}

// Record is a persisted job as read back from the store.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Factory rebuilds an executable Job from its persisted record.
type Factory func(rec Record) (Job, error)

// Store persists jobs and their status.
type Store interface {
	// Save persists a new job in pending state
	Save(ctx context.Context, job Job) error

	// UpdateStatus records a status transition and an optional error message
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error

	// ListByStatus returns jobs in status, oldest first. If olderThan is
	// non-zero, only jobs whose last update is older than that are returned.
	ListByStatus(ctx context.Context, status Status, olderThan time.Duration) ([]Record, error)
}
