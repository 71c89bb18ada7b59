package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/domain/policy"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/service/dispatch"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// TaskQuery narrows the task listing of the acting user.
type TaskQuery struct {
	Status   *domain.TaskStatus
	Priority *domain.Priority
	Due      domain.DueBucket
	Page     domain.Page
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Items      []domain.Task
	Total      int
	Pagination domain.Pagination
}

// TaskService is the task lifecycle controller. Every mutation is authorized,
// validated, applied and dispatched within a single transaction; notification
// events are published only after the transaction commits.
type TaskService interface {
	// CreateTask creates a task owned by the actor and notifies its assignee.
	CreateTask(ctx context.Context, actor domain.Actor, draft domain.TaskDraft) (*domain.Task, error)

	// GetTask returns a task with comments and creator/assignee summaries.
	GetTask(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error)

	// ListTasks returns one page of the tasks assigned to the actor, newest first.
	ListTasks(ctx context.Context, actor domain.Actor, query TaskQuery) (*TaskPage, error)

	// UpdateTask applies a partial update and notifies on completion or reassignment.
	UpdateTask(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)

	// DeleteTask removes a task. Only its creator or an admin may do so.
	DeleteTask(ctx context.Context, actor domain.Actor, id uuid.UUID) error

	// AssignTask sets the assignee and always notifies them.
	AssignTask(ctx context.Context, actor domain.Actor, id uuid.UUID, assigneeID uuid.UUID) (*domain.Task, error)

	// AddComment stores a comment and returns all comments of the task, newest first.
	AddComment(ctx context.Context, actor domain.Actor, id uuid.UUID, text string) ([]domain.Comment, error)

	// SearchTasks runs a text search over the tasks assigned to the actor.
	SearchTasks(ctx context.Context, actor domain.Actor, query string) ([]domain.Task, error)

	// OverdueTasks returns the actor's unfinished tasks due before today, earliest first.
	OverdueTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error)

	// AssignedTasks returns every task assigned to the actor, newest first.
	AssignedTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error)

	// CreatedTasks returns every task the actor created, newest first.
	CreatedTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error)
}

type taskServiceImpl struct {
	tasks  store.TaskStore
	tx     store.Transactor
	engine *dispatch.Engine
	now    func() time.Time
	logger *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(
	tasks store.TaskStore,
	tx store.Transactor,
	engine *dispatch.Engine,
	logger *slog.Logger,
) TaskService {
	if tasks == nil || tx == nil || engine == nil {
		panic("task service dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &taskServiceImpl{
		tasks:  tasks,
		tx:     tx,
		engine: engine,
		now:    time.Now,
		logger: logger.With(slog.String("component", "task_service")),
	}
}

func authorize(actor domain.Actor, action policy.Action, target policy.Target) error {
	return policy.CanPerform(actor, action, target).Err()
}

// requireUser fails with ErrUserNotFound if id does not name an existing user.
func requireUser(ctx context.Context, users store.UserStore, id uuid.UUID) error {
	if _, err := users.GetByID(ctx, id); err != nil {
		return translateError("lookup_user", "failed to look up user", err)
	}
	return nil
}

func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	actor domain.Actor,
	draft domain.TaskDraft,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := authorize(actor, policy.CreateTask, policy.Target{}); err != nil {
		return nil, err
	}

	task, err := domain.NewTask(draft, actor.ID)
	if err != nil {
		return nil, err
	}

	var (
		created *domain.Task
		batch   dispatch.Batch
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		if task.AssignedTo != nil {
			if err := requireUser(ctx, st.Users, *task.AssignedTo); err != nil {
				return err
			}
		}
		if err := st.Tasks.Create(ctx, task); err != nil {
			return err
		}
		b, err := s.engine.TaskCreated(ctx, st, actor, task)
		if err != nil {
			return err
		}
		batch = b
		created, err = st.Tasks.GetByID(ctx, task.ID)
		return err
	})
	if err != nil {
		return nil, translateError("create_task", "failed to create task", err)
	}

	s.engine.Publish(ctx, batch)

	log.Info("task created",
		slog.String("task_id", created.ID.String()),
		slog.String("created_by", actor.ID.String()))
	return created, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, translateError("get_task", "failed to get task", err)
	}
	if err := authorize(actor, policy.ReadTask, policy.Target{Task: task}); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, actor domain.Actor, query TaskQuery) (*TaskPage, error) {
	if err := authorize(actor, policy.ReadTask, policy.Target{}); err != nil {
		return nil, err
	}

	page := domain.NewPage(query.Page.Number, query.Page.Size)
	filter := store.TaskFilter{
		Status:     query.Status,
		Priority:   query.Priority,
		AssignedTo: &actor.ID,
		Order:      store.OrderNewestFirst,
	}
	filter.ApplyDueBucket(query.Due, s.now().UTC())

	items, total, err := s.tasks.List(ctx, filter, page)
	if err != nil {
		return nil, translateError("list_tasks", "failed to list tasks", err)
	}

	return &TaskPage{
		Items:      items,
		Total:      total,
		Pagination: page.Paginate(total),
	}, nil
}

func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	var (
		updated *domain.Task
		batch   dispatch.Batch
		change  domain.TaskChange
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		task, err := st.Tasks.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, policy.UpdateTask, policy.Target{Task: task}); err != nil {
			return err
		}
		if patch.AssignedTo != nil {
			if err := requireUser(ctx, st.Users, *patch.AssignedTo); err != nil {
				return err
			}
		}

		change, err = task.ApplyPatch(patch)
		if err != nil {
			return err
		}
		if err := st.Tasks.Update(ctx, task); err != nil {
			return err
		}

		batch, err = s.engine.TaskUpdated(ctx, st, actor, task, change)
		if err != nil {
			return err
		}
		updated, err = st.Tasks.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, translateError("update_task", "failed to update task", err)
	}

	s.engine.Publish(ctx, batch)

	logger.FromContextOrDefault(ctx, s.logger).Info("task updated",
		slog.String("task_id", id.String()),
		slog.Bool("completed", change.Completed),
		slog.Bool("reassigned", change.Reassigned))
	return updated, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		task, err := st.Tasks.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, policy.DeleteTask, policy.Target{Task: task}); err != nil {
			return err
		}
		return st.Tasks.Delete(ctx, id)
	})
	if err != nil {
		return translateError("delete_task", "failed to delete task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted",
		slog.String("task_id", id.String()),
		slog.String("deleted_by", actor.ID.String()))
	return nil
}

func (s *taskServiceImpl) AssignTask(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
	assigneeID uuid.UUID,
) (*domain.Task, error) {
	if assigneeID == uuid.Nil {
		return nil, domain.NewValidationError("userId", "is required", domain.ErrInvalidID)
	}

	var (
		assigned *domain.Task
		batch    dispatch.Batch
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		task, err := st.Tasks.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, policy.AssignTask, policy.Target{Task: task}); err != nil {
			return err
		}
		if err := requireUser(ctx, st.Users, assigneeID); err != nil {
			return err
		}

		if _, err := task.ApplyPatch(domain.TaskPatch{AssignedTo: &assigneeID}); err != nil {
			return err
		}
		if err := st.Tasks.Update(ctx, task); err != nil {
			return err
		}

		batch, err = s.engine.TaskAssigned(ctx, st, actor, task)
		if err != nil {
			return err
		}
		assigned, err = st.Tasks.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, translateError("assign_task", "failed to assign task", err)
	}

	s.engine.Publish(ctx, batch)

	logger.FromContextOrDefault(ctx, s.logger).Info("task assigned",
		slog.String("task_id", id.String()),
		slog.String("assignee_id", assigneeID.String()))
	return assigned, nil
}

func (s *taskServiceImpl) AddComment(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
	text string,
) ([]domain.Comment, error) {
	if err := authorize(actor, policy.AddComment, policy.Target{}); err != nil {
		return nil, err
	}

	comment, err := domain.NewComment(text, actor.ID)
	if err != nil {
		return nil, err
	}

	var (
		comments []domain.Comment
		batch    dispatch.Batch
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		task, err := st.Tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		comments, err = st.Tasks.AddComment(ctx, id, comment)
		if err != nil {
			return err
		}
		batch, err = s.engine.CommentAdded(ctx, st, actor, task, comment)
		return err
	})
	if err != nil {
		return nil, translateError("add_comment", "failed to add comment", err)
	}

	s.engine.Publish(ctx, batch)

	logger.FromContextOrDefault(ctx, s.logger).Debug("comment added",
		slog.String("task_id", id.String()),
		slog.String("comment_id", comment.ID.String()))
	return comments, nil
}

func (s *taskServiceImpl) SearchTasks(ctx context.Context, actor domain.Actor, query string) ([]domain.Task, error) {
	if err := authorize(actor, policy.ReadTask, policy.Target{}); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("", "Please provide a search term", nil)
	}

	tasks, err := s.tasks.Search(ctx, query, actor.ID)
	if err != nil {
		return nil, translateError("search_tasks", "failed to search tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) OverdueTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error) {
	filter := store.TaskFilter{AssignedTo: &actor.ID, Order: store.OrderDueSoonest}
	filter.ApplyDueBucket(domain.DueOverdue, s.now().UTC())
	return s.listAll(ctx, actor, "overdue_tasks", filter)
}

func (s *taskServiceImpl) AssignedTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error) {
	return s.listAll(ctx, actor, "assigned_tasks", store.TaskFilter{AssignedTo: &actor.ID})
}

func (s *taskServiceImpl) CreatedTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error) {
	return s.listAll(ctx, actor, "created_tasks", store.TaskFilter{CreatedBy: &actor.ID})
}

// listAll returns every task matching filter without pagination.
func (s *taskServiceImpl) listAll(
	ctx context.Context,
	actor domain.Actor,
	operation string,
	filter store.TaskFilter,
) ([]domain.Task, error) {
	if err := authorize(actor, policy.ReadTask, policy.Target{}); err != nil {
		return nil, err
	}

	tasks, _, err := s.tasks.List(ctx, filter, domain.Page{})
	if err != nil {
		return nil, translateError(operation, "failed to list tasks", err)
	}
	return tasks, nil
}
