package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/job"
	"github.com/phrazzld/teamtasks-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: uniqueViolationCode}, store.ErrDuplicate},
		{"foreign key violation", &pgconn.PgError{Code: foreignKeyViolationCode}, store.ErrInvalidEntity},
		{"check violation", &pgconn.PgError{Code: checkViolationCode}, store.ErrInvalidEntity},
		{"not null violation", &pgconn.PgError{Code: notNullViolationCode}, store.ErrInvalidEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), tt.err.Error())
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		err := errors.New("connection reset")
		assert.Equal(t, err, MapError(err))
	})
}

func TestIsForeignKeyViolation(t *testing.T) {
	err := &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: taskCommentsTaskFK}

	assert.True(t, IsForeignKeyViolation(err, ""))
	assert.True(t, IsForeignKeyViolation(err, taskCommentsTaskFK))
	assert.False(t, IsForeignKeyViolation(err, "other_fkey"))
	assert.False(t, IsForeignKeyViolation(errors.New("boom"), ""))
}

func TestCommentListScan(t *testing.T) {
	var c commentList
	require.NoError(t, c.Scan(nil))
	assert.Empty(t, c)

	id := uuid.New()
	require.NoError(t, c.Scan([]byte(`[{"id":"`+id.String()+`","text":"first"}]`)))
	require.Len(t, c, 1)
	assert.Equal(t, "first", c[0].Text)

	require.NoError(t, c.Scan("[]"))
	assert.NotNil(t, c)
	assert.Empty(t, c)

	assert.Error(t, c.Scan(42))
	assert.Error(t, c.Scan([]byte(`{`)))
}

func TestBuildTaskWhere(t *testing.T) {
	status := domain.TaskStatusReview
	assignee := uuid.New()
	before := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	where, args := buildTaskWhere(store.TaskFilter{
		Status:           &status,
		AssignedTo:       &assignee,
		DueBefore:        &before,
		ExcludeCompleted: true,
	})

	assert.Equal(t,
		" WHERE t.status = $1 AND t.assigned_to = $2 AND t.due_date < $3 AND t.status <> $4",
		where)
	assert.Equal(t, []any{"review", assignee, before, "completed"}, args)

	where, args = buildTaskWhere(store.TaskFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestUserStore_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	users := NewUserStore(db, nil)

	user, err := domain.NewUser("Wes", "wes@example.com", domain.RoleUser)
	require.NoError(t, err)
	user.HashedPassword = "hash"

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_key"})

	err = users.Create(context.Background(), user)
	assert.ErrorIs(t, err, store.ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	users := NewUserStore(db, nil)
	id := uuid.New()

	mock.ExpectQuery("FROM users WHERE id = ").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := users.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_UpdatePreferences(t *testing.T) {
	db, mock := newMockDB(t)
	users := NewUserStore(db, nil)
	id := uuid.New()
	muted := true

	mock.ExpectQuery("UPDATE users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), id).
		WillReturnRows(sqlmock.NewRows([]string{"notify_email", "notify_in_app", "notify_muted"}).
			AddRow(true, true, true))

	prefs, err := users.UpdatePreferences(context.Background(), id, domain.PreferencesPatch{Muted: &muted})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationPreferences{Email: true, InApp: true, Muted: true}, prefs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_CreateRejectsInvalidTask(t *testing.T) {
	db, mock := newMockDB(t)
	tasks := NewTaskStore(db, nil)

	err := tasks.Create(context.Background(), &domain.Task{ID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.NoError(t, mock.ExpectationsWereMet(), "no query is issued for an invalid task")
}

func TestTaskStore_GetForUpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	tasks := NewTaskStore(db, nil)
	id := uuid.New()

	mock.ExpectQuery(`SELECT id FROM tasks WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := tasks.GetForUpdate(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_AddCommentToMissingTask(t *testing.T) {
	db, mock := newMockDB(t)
	tasks := NewTaskStore(db, nil)
	comment, err := domain.NewComment("ping", uuid.New())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO task_comments").
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: taskCommentsTaskFK})

	_, err = tasks.AddComment(context.Background(), uuid.New(), comment)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_ClaimReminder(t *testing.T) {
	db, mock := newMockDB(t)
	tasks := NewTaskStore(db, nil)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE tasks SET reminder_sent_at").
		WithArgs(at, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET reminder_sent_at").
		WithArgs(at, id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := tasks.ClaimReminder(context.Background(), id, at)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = tasks.ClaimReminder(context.Background(), id, at)
	require.NoError(t, err)
	assert.False(t, claimed, "a second claim loses")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	tasks := NewTaskStore(db, nil)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM tasks").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	err := tasks.Delete(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_MarkAllRead(t *testing.T) {
	db, mock := newMockDB(t)
	notifications := NewNotificationStore(db, nil)
	recipient := uuid.New()

	mock.ExpectExec("UPDATE notifications SET read = TRUE WHERE recipient_id").
		WithArgs(recipient).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := notifications.MarkAllRead(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	notifications := NewNotificationStore(db, nil)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM notifications").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	err := notifications.Delete(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrNotificationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_UpdateStatusMissingJobIsIgnored(t *testing.T) {
	db, mock := newMockDB(t)
	jobs := NewJobStore(db, nil)
	id := uuid.New()

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs(string(job.StatusFailed), "smtp down", id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, jobs.UpdateStatus(context.Background(), id, job.StatusFailed, "smtp down"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	tx := NewTransactor(db, NewTaskStore(db, nil), NewNotificationStore(db, nil), NewUserStore(db, nil))
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tasks").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("dispatch failed")
	err := tx.WithinTx(context.Background(), func(ctx context.Context, s store.Stores) error {
		if err := s.Tasks.Delete(ctx, id); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
