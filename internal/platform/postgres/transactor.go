package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// Transactor implements store.Transactor with database transactions.
type Transactor struct {
	db            *sqlx.DB
	tasks         store.TaskStore
	notifications store.NotificationStore
	users         store.UserStore
}

// NewTransactor creates a Transactor whose transactions bind the given stores.
func NewTransactor(
	db *sqlx.DB,
	tasks store.TaskStore,
	notifications store.NotificationStore,
	users store.UserStore,
) *Transactor {
	if db == nil {
		panic("db cannot be nil")
	}
	return &Transactor{db: db, tasks: tasks, notifications: notifications, users: users}
}

var _ store.Transactor = (*Transactor)(nil)

// WithinTx implements store.Transactor.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, store.Stores{
			Tasks:         t.tasks.WithTx(tx),
			Notifications: t.notifications.WithTx(tx),
			Users:         t.users.WithTx(tx),
		})
	})
}
