package mocks

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// MemoryTaskStore implements store.TaskStore on a MemoryDB.
type MemoryTaskStore struct {
	db *MemoryDB
}

var _ store.TaskStore = (*MemoryTaskStore)(nil)

// WithTx implements store.TaskStore.
func (s *MemoryTaskStore) WithTx(*sqlx.Tx) store.TaskStore { return s }

// populate fills the read-only summaries. Must be called with db.mu held.
func (s *MemoryTaskStore) populate(t domain.Task) domain.Task {
	t = cloneTask(t)
	if u, ok := s.db.users[t.CreatedBy]; ok {
		t.Creator = u.Summary()
	}
	if t.AssignedTo != nil {
		if u, ok := s.db.users[*t.AssignedTo]; ok {
			t.Assignee = u.Summary()
		}
	}
	for i := range t.Comments {
		if u, ok := s.db.users[t.Comments[i].UserID]; ok {
			t.Comments[i].Author = u.Summary()
		}
	}
	return t
}

// Create implements store.TaskStore.
func (s *MemoryTaskStore) Create(ctx context.Context, task *domain.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Tasks.Create"); err != nil {
		return err
	}
	if err := task.Validate(); err != nil {
		return err
	}
	if task.AssignedTo != nil {
		if _, ok := s.db.users[*task.AssignedTo]; !ok {
			return store.ErrInvalidEntity
		}
	}
	s.db.tasks[task.ID] = cloneTask(*task)
	return nil
}

// GetByID implements store.TaskStore.
func (s *MemoryTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Tasks.GetByID"); err != nil {
		return nil, err
	}
	t, ok := s.db.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	out := s.populate(t)
	return &out, nil
}

// GetForUpdate implements store.TaskStore.
func (s *MemoryTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.GetByID(ctx, id)
}

func matches(t domain.Task, f store.TaskFilter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.AssignedTo != nil && !t.IsAssignedTo(*f.AssignedTo) {
		return false
	}
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.DueFrom != nil && t.DueDate.Before(*f.DueFrom) {
		return false
	}
	if f.DueBefore != nil && !t.DueDate.Before(*f.DueBefore) {
		return false
	}
	if f.ExcludeCompleted && t.IsCompleted() {
		return false
	}
	return true
}

func sortTasks(tasks []domain.Task, order store.TaskOrder) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if order == store.OrderDueSoonest {
			if !a.DueDate.Equal(b.DueDate) {
				return a.DueDate.Before(b.DueDate)
			}
		} else if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// List implements store.TaskStore.
func (s *MemoryTaskStore) List(
	ctx context.Context,
	filter store.TaskFilter,
	page domain.Page,
) ([]domain.Task, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Tasks.List"); err != nil {
		return nil, 0, err
	}

	var all []domain.Task
	for _, t := range s.db.tasks {
		if matches(t, filter) {
			all = append(all, s.populate(t))
		}
	}
	sortTasks(all, filter.Order)
	total := len(all)

	if page.Size > 0 {
		start := page.Offset()
		if start > total {
			start = total
		}
		end := start + page.Size
		if end > total {
			end = total
		}
		all = all[start:end]
	}
	if all == nil {
		all = []domain.Task{}
	}
	return all, total, nil
}

// Update implements store.TaskStore.
func (s *MemoryTaskStore) Update(ctx context.Context, task *domain.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Tasks.Update"); err != nil {
		return err
	}
	existing, ok := s.db.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if err := task.Validate(); err != nil {
		return err
	}
	updated := cloneTask(*task)
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.Comments = existing.Comments
	if !existing.DueDate.Equal(updated.DueDate) {
		updated.ReminderSentAt = nil
	} else {
		updated.ReminderSentAt = existing.ReminderSentAt
	}
	s.db.tasks[task.ID] = updated
	return nil
}

// Delete implements store.TaskStore.
func (s *MemoryTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Tasks.Delete"); err != nil {
		return err
	}
	if _, ok := s.db.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.db.tasks, id)
	return nil
}

// Search implements store.TaskStore with a case-insensitive substring match.
func (s *MemoryTaskStore) Search(ctx context.Context, query string, assigneeID uuid.UUID) ([]domain.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Tasks.Search"); err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := []domain.Task{}
	for _, t := range s.db.tasks {
		if !t.IsAssignedTo(assigneeID) {
			continue
		}
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, s.populate(t))
		}
	}
	sortTasks(out, store.OrderNewestFirst)
	return out, nil
}

// AddComment implements store.TaskStore.
func (s *MemoryTaskStore) AddComment(
	ctx context.Context,
	taskID uuid.UUID,
	comment *domain.Comment,
) ([]domain.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Tasks.AddComment"); err != nil {
		return nil, err
	}
	t, ok := s.db.tasks[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	t.PrependComment(*comment)
	s.db.tasks[taskID] = t
	return s.populate(t).Comments, nil
}

// ListDueForReminder implements store.TaskStore.
func (s *MemoryTaskStore) ListDueForReminder(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Tasks.ListDueForReminder"); err != nil {
		return nil, err
	}
	var out []domain.Task
	for _, t := range s.db.tasks {
		if t.AssignedTo == nil || t.IsCompleted() || t.ReminderSentAt != nil {
			continue
		}
		if t.DueDate.Before(from) || !t.DueDate.Before(to) {
			continue
		}
		out = append(out, s.populate(t))
	}
	sortTasks(out, store.OrderDueSoonest)
	return out, nil
}

// ClaimReminder implements store.TaskStore.
func (s *MemoryTaskStore) ClaimReminder(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Tasks.ClaimReminder"); err != nil {
		return false, err
	}
	t, ok := s.db.tasks[id]
	if !ok || t.ReminderSentAt != nil {
		return false, nil
	}
	t.ReminderSentAt = timePtr(at)
	s.db.tasks[id] = t
	return true, nil
}
