package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/teamtasks-api/internal/store"
)

// Reminder notifies assignees about tasks whose due date is approaching.
// Each task is reminded at most once per due date.
type Reminder struct {
	tasks  store.TaskStore
	tx     store.Transactor
	engine *Engine
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewReminder creates a Reminder covering tasks due within window from now.
func NewReminder(
	tasks store.TaskStore,
	tx store.Transactor,
	engine *Engine,
	window time.Duration,
	logger *slog.Logger,
) *Reminder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reminder{
		tasks:  tasks,
		tx:     tx,
		engine: engine,
		window: window,
		now:    time.Now,
		logger: logger.With(slog.String("component", "due_date_reminder")),
	}
}

// Sweep issues reminders for every eligible task and returns how many were issued.
func (r *Reminder) Sweep(ctx context.Context) (int, error) {
	now := r.now().UTC()
	due, err := r.tasks.ListDueForReminder(ctx, now, now.Add(r.window))
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks due for reminder: %w", err)
	}

	sent := 0
	for i := range due {
		task := &due[i]
		var batch Batch
		claimed := false

		err := r.tx.WithinTx(ctx, func(ctx context.Context, s store.Stores) error {
			ok, err := s.Tasks.ClaimReminder(ctx, task.ID, now)
			if err != nil || !ok {
				return err
			}
			claimed = true
			batch, err = r.engine.DueSoon(ctx, s, task)
			return err
		})
		if err != nil {
			r.logger.Error("failed to issue due date reminder",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if !claimed {
			continue
		}

		r.engine.Publish(ctx, batch)
		sent++
	}

	if sent > 0 {
		r.logger.Info("due date reminders issued", slog.Int("count", sent))
	}
	return sent, nil
}

// Run sweeps immediately and then every interval until ctx is canceled.
func (r *Reminder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil {
			r.logger.Error("due date reminder sweep failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

