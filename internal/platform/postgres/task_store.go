package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

const taskCommentsTaskFK = "task_comments_task_id_fkey"

// taskSelect loads a task together with its creator, assignee and comments
// (newest first) in a single round trip.
const taskSelect = `
	SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status,
	       t.created_by, t.assigned_to, t.reminder_sent_at, t.created_at, t.updated_at,
	       cu.name AS creator_name, cu.email AS creator_email,
	       au.name AS assignee_name, au.email AS assignee_email,
	       COALESCE((
	           SELECT json_agg(json_build_object(
	                      'id', c.id,
	                      'text', c.text,
	                      'user', c.user_id,
	                      'createdAt', c.created_at,
	                      'author', json_build_object('id', cmu.id, 'name', cmu.name, 'email', cmu.email)
	                  ) ORDER BY c.created_at DESC)
	           FROM task_comments c
	           JOIN users cmu ON cmu.id = c.user_id
	           WHERE c.task_id = t.id
	       ), '[]'::json) AS comments
	FROM tasks t
	LEFT JOIN users cu ON cu.id = t.created_by
	LEFT JOIN users au ON au.id = t.assigned_to`

// taskRow is the database shape of a task.
type taskRow struct {
	ID             uuid.UUID      `db:"id"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	DueDate        time.Time      `db:"due_date"`
	Priority       string         `db:"priority"`
	Status         string         `db:"status"`
	CreatedBy      uuid.UUID      `db:"created_by"`
	AssignedTo     uuid.NullUUID  `db:"assigned_to"`
	ReminderSentAt sql.NullTime   `db:"reminder_sent_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	CreatorName    sql.NullString `db:"creator_name"`
	CreatorEmail   sql.NullString `db:"creator_email"`
	AssigneeName   sql.NullString `db:"assignee_name"`
	AssigneeEmail  sql.NullString `db:"assignee_email"`
	Comments       commentList    `db:"comments"`
}

// commentList scans the JSON comment aggregate.
type commentList []domain.Comment

// Scan implements sql.Scanner.
func (c *commentList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = commentList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported comments type %T", src)
	}
	var comments []domain.Comment
	if err := json.Unmarshal(raw, &comments); err != nil {
		return fmt.Errorf("failed to decode comments: %w", err)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	*c = comments
	return nil
}

func (r taskRow) toDomain() domain.Task {
	task := domain.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.UTC(),
		Priority:    domain.Priority(r.Priority),
		Status:      domain.TaskStatus(r.Status),
		CreatedBy:   r.CreatedBy,
		Comments:    []domain.Comment(r.Comments),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if task.Comments == nil {
		task.Comments = []domain.Comment{}
	}
	if r.AssignedTo.Valid {
		assignee := r.AssignedTo.UUID
		task.AssignedTo = &assignee
		if r.AssigneeName.Valid {
			task.Assignee = &domain.UserSummary{ID: assignee, Name: r.AssigneeName.String, Email: r.AssigneeEmail.String}
		}
	}
	if r.CreatorName.Valid {
		task.Creator = &domain.UserSummary{ID: r.CreatedBy, Name: r.CreatorName.String, Email: r.CreatorEmail.String}
	}
	if r.ReminderSentAt.Valid {
		sent := r.ReminderSentAt.Time.UTC()
		task.ReminderSentAt = &sent
	}
	return task
}

func toTaskRow(t *domain.Task) taskRow {
	row := taskRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		row.AssignedTo = uuid.NullUUID{UUID: *t.AssignedTo, Valid: true}
	}
	return row
}

// TaskStore implements store.TaskStore on PostgreSQL.
type TaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewTaskStore creates a TaskStore. If logger is nil, slog.Default() is used.
func NewTaskStore(db store.DBTX, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*TaskStore)(nil)

// WithTx implements store.TaskStore.WithTx.
func (s *TaskStore) WithTx(tx *sqlx.Tx) store.TaskStore {
	return &TaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.Create.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, title, description, due_date, priority, status,
		                   created_by, assigned_to, created_at, updated_at)
		VALUES (:id, :title, :description, :due_date, :priority, :status,
		        :created_by, :assigned_to, :created_at, :updated_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, toTaskRow(task)); err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("created_by", task.CreatedBy.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var row taskRow
	err := s.db.GetContext(ctx, &row, taskSelect+` WHERE t.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	task := row.toDomain()
	return &task, nil
}

// GetForUpdate implements store.TaskStore.GetForUpdate.
func (s *TaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var locked uuid.UUID
	err := s.db.GetContext(ctx, &locked, `SELECT id FROM tasks WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to lock task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return s.GetByID(ctx, id)
}

// buildTaskWhere renders filter as a WHERE clause with positional arguments.
func buildTaskWhere(filter store.TaskFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != nil {
		add("t.status = $%d", string(*filter.Status))
	}
	if filter.Priority != nil {
		add("t.priority = $%d", string(*filter.Priority))
	}
	if filter.AssignedTo != nil {
		add("t.assigned_to = $%d", *filter.AssignedTo)
	}
	if filter.CreatedBy != nil {
		add("t.created_by = $%d", *filter.CreatedBy)
	}
	if filter.DueFrom != nil {
		add("t.due_date >= $%d", *filter.DueFrom)
	}
	if filter.DueBefore != nil {
		add("t.due_date < $%d", *filter.DueBefore)
	}
	if filter.ExcludeCompleted {
		add("t.status <> $%d", string(domain.TaskStatusCompleted))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func taskOrderBy(order store.TaskOrder) string {
	if order == store.OrderDueSoonest {
		return " ORDER BY t.due_date ASC, t.created_at DESC"
	}
	return " ORDER BY t.created_at DESC, t.id"
}

// List implements store.TaskStore.List.
func (s *TaskStore) List(
	ctx context.Context,
	filter store.TaskFilter,
	page domain.Page,
) ([]domain.Task, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildTaskWhere(filter)

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM tasks t`+where, args...); err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}

	query := taskSelect + where + taskOrderBy(filter.Order)
	if page.Size > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, page.Size, page.Offset())
	}

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}

	return toTasks(rows), total, nil
}

func toTasks(rows []taskRow) []domain.Task {
	tasks := make([]domain.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toDomain())
	}
	return tasks
}

// Update implements store.TaskStore.Update.
// A changed due date clears the reminder marker so the new date gets its own reminder.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE tasks
		SET title = :title,
		    description = :description,
		    reminder_sent_at = CASE WHEN due_date = :due_date THEN reminder_sent_at END,
		    due_date = :due_date,
		    priority = :priority,
		    status = :status,
		    assigned_to = :assigned_to,
		    updated_at = :updated_at
		WHERE id = :id
	`
	result, err := s.db.NamedExecContext(ctx, query, toTaskRow(task))
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Debug("task updated", slog.String("task_id", task.ID.String()))
	return nil
}

// Delete implements store.TaskStore.Delete.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// Search implements store.TaskStore.Search using the weighted title/description
// tsvector and websearch query syntax.
func (s *TaskStore) Search(ctx context.Context, query string, assigneeID uuid.UUID) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	q := taskSelect + `
		WHERE t.assigned_to = $1
		  AND t.search_vector @@ websearch_to_tsquery('english', $2)
		ORDER BY ts_rank(t.search_vector, websearch_to_tsquery('english', $2)) DESC, t.created_at DESC`

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, q, assigneeID, query); err != nil {
		log.Error("failed to search tasks",
			slog.String("error", err.Error()),
			slog.String("assignee_id", assigneeID.String()))
		return nil, MapError(err)
	}

	return toTasks(rows), nil
}

type commentRow struct {
	ID          uuid.UUID `db:"id"`
	Text        string    `db:"text"`
	UserID      uuid.UUID `db:"user_id"`
	CreatedAt   time.Time `db:"created_at"`
	AuthorName  string    `db:"author_name"`
	AuthorEmail string    `db:"author_email"`
}

// AddComment implements store.TaskStore.AddComment.
func (s *TaskStore) AddComment(
	ctx context.Context,
	taskID uuid.UUID,
	comment *domain.Comment,
) ([]domain.Comment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_comments (id, task_id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, taskID, comment.UserID, comment.Text, comment.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err, taskCommentsTaskFK) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to add comment",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}

	var rows []commentRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT c.id, c.text, c.user_id, c.created_at, u.name AS author_name, u.email AS author_email
		FROM task_comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.task_id = $1
		ORDER BY c.created_at DESC, c.id`, taskID)
	if err != nil {
		log.Error("failed to load comments",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}

	comments := make([]domain.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, domain.Comment{
			ID:        r.ID,
			Text:      r.Text,
			UserID:    r.UserID,
			Author:    &domain.UserSummary{ID: r.UserID, Name: r.AuthorName, Email: r.AuthorEmail},
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return comments, nil
}

// ListDueForReminder implements store.TaskStore.ListDueForReminder.
func (s *TaskStore) ListDueForReminder(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	q := taskSelect + `
		WHERE t.assigned_to IS NOT NULL
		  AND t.status <> $1
		  AND t.reminder_sent_at IS NULL
		  AND t.due_date >= $2 AND t.due_date < $3
		ORDER BY t.due_date ASC`

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, q, string(domain.TaskStatusCompleted), from, to); err != nil {
		log.Error("failed to list tasks due for reminder", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return toTasks(rows), nil
}

// ClaimReminder implements store.TaskStore.ClaimReminder.
func (s *TaskStore) ClaimReminder(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET reminder_sent_at = $1 WHERE id = $2 AND reminder_sent_at IS NULL`,
		at, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to claim reminder",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return false, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}
