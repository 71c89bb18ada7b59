package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/job"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

type jobRow struct {
	ID           uuid.UUID `db:"id"`
	Type         string    `db:"type"`
	Payload      []byte    `db:"payload"`
	Status       string    `db:"status"`
	ErrorMessage string    `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// JobStore implements job.Store on PostgreSQL.
type JobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewJobStore creates a JobStore. If logger is nil, slog.Default() is used.
func NewJobStore(db store.DBTX, logger *slog.Logger) *JobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

var _ job.Store = (*JobStore)(nil)

// Save implements job.Store.Save.
func (s *JobStore) Save(ctx context.Context, j job.Job) error {
	payload := j.Payload()
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, payload, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', NOW(), NOW())`,
		j.ID(), j.Type(), payload, string(job.StatusPending))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save job",
			slog.String("error", err.Error()),
			slog.String("job_id", j.ID().String()),
			slog.String("job_type", j.Type()))
		return MapError(err)
	}
	return nil
}

// UpdateStatus implements job.Store.UpdateStatus.
// Updating a job that no longer exists is logged and ignored.
func (s *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status job.Status, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3`,
		string(status), errorMsg, id)
	if err != nil {
		log.Error("failed to update job status",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		log.Warn("job not found for status update",
			slog.String("job_id", id.String()),
			slog.String("status", string(status)))
	}
	return nil
}

// ListByStatus implements job.Store.ListByStatus.
func (s *JobStore) ListByStatus(ctx context.Context, status job.Status, olderThan time.Duration) ([]job.Record, error) {
	query := `SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM jobs WHERE status = $1`
	args := []any{string(status)}
	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}
	query += ` ORDER BY created_at ASC`

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list jobs",
			slog.String("error", err.Error()),
			slog.String("status", string(status)))
		return nil, MapError(err)
	}

	records := make([]job.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, job.Record{
			ID:           r.ID,
			Type:         r.Type,
			Payload:      r.Payload,
			Status:       job.Status(r.Status),
			ErrorMessage: r.ErrorMessage,
			CreatedAt:    r.CreatedAt.UTC(),
			UpdatedAt:    r.UpdatedAt.UTC(),
		})
	}
	return records, nil
}
