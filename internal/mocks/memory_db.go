package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// MemoryDB holds users, tasks and notifications in memory.
type MemoryDB struct {
	mu            sync.Mutex
	users         map[uuid.UUID]domain.User
	tasks         map[uuid.UUID]domain.Task
	notifications map[uuid.UUID]domain.Notification
	failures      map[string]error

	// TxCount counts units of work started through the Transactor.
	TxCount int
}

// NewMemoryDB returns an empty MemoryDB.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:         make(map[uuid.UUID]domain.User),
		tasks:         make(map[uuid.UUID]domain.Task),
		notifications: make(map[uuid.UUID]domain.Notification),
		failures:      make(map[string]error),
	}
}

// FailOn makes the named operation (for example "Tasks.Update") return err.
// A nil err clears the failure.
func (db *MemoryDB) FailOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

// fail must be called with db.mu held.
func (db *MemoryDB) fail(op string) error {
	return db.failures[op]
}

// Stores returns stores backed by db.
func (db *MemoryDB) Stores() store.Stores {
	return store.Stores{
		Tasks:         &MemoryTaskStore{db: db},
		Notifications: &MemoryNotificationStore{db: db},
		Users:         &MemoryUserStore{db: db},
	}
}

// Tasks returns a TaskStore backed by db.
func (db *MemoryDB) Tasks() *MemoryTaskStore { return &MemoryTaskStore{db: db} }

// Notifications returns a NotificationStore backed by db.
func (db *MemoryDB) Notifications() *MemoryNotificationStore {
	return &MemoryNotificationStore{db: db}
}

// Users returns a UserStore backed by db.
func (db *MemoryDB) Users() *MemoryUserStore { return &MemoryUserStore{db: db} }

// Transactor returns a store.Transactor whose units of work roll back on error.
func (db *MemoryDB) Transactor() store.Transactor { return memoryTransactor{db: db} }

// AddUser stores u directly, bypassing validation.
func (db *MemoryDB) AddUser(u *domain.User) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[u.ID] = *u
}

// NewTestUser creates and stores a user with default preferences.
func (db *MemoryDB) NewTestUser(name string, role domain.Role) *domain.User {
	u, err := domain.NewUser(name, name+"@example.com", role)
	if err != nil {
		panic(err)
	}
	u.HashedPassword = "hashed"
	db.AddUser(u)
	return u
}

// SetPreferences overwrites a stored user's notification preferences.
func (db *MemoryDB) SetPreferences(id uuid.UUID, prefs domain.NotificationPreferences) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := db.users[id]
	u.Preferences = prefs
	db.users[id] = u
}

// AddTask stores t directly, bypassing validation.
func (db *MemoryDB) AddTask(t *domain.Task) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tasks[t.ID] = cloneTask(*t)
}

// Task returns a copy of a stored task.
func (db *MemoryDB) Task(id uuid.UUID) (domain.Task, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tasks[id]
	return cloneTask(t), ok
}

// AllNotifications returns every stored notification, oldest first.
func (db *MemoryDB) AllNotifications() []domain.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]domain.Notification, 0, len(db.notifications))
	for _, n := range db.notifications {
		out = append(out, n)
	}
	sortNotifications(out, false)
	return out
}

// NotificationsFor returns the notifications stored for recipient, oldest first.
func (db *MemoryDB) NotificationsFor(recipient uuid.UUID) []domain.Notification {
	var out []domain.Notification
	for _, n := range db.AllNotifications() {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out
}

type snapshot struct {
	users         map[uuid.UUID]domain.User
	tasks         map[uuid.UUID]domain.Task
	notifications map[uuid.UUID]domain.Notification
}

func (db *MemoryDB) snapshot() snapshot {
	s := snapshot{
		users:         make(map[uuid.UUID]domain.User, len(db.users)),
		tasks:         make(map[uuid.UUID]domain.Task, len(db.tasks)),
		notifications: make(map[uuid.UUID]domain.Notification, len(db.notifications)),
	}
	for k, v := range db.users {
		s.users[k] = v
	}
	for k, v := range db.tasks {
		s.tasks[k] = cloneTask(v)
	}
	for k, v := range db.notifications {
		s.notifications[k] = v
	}
	return s
}

type memoryTransactor struct {
	db *MemoryDB
}

var _ store.Transactor = memoryTransactor{}

// WithinTx runs fn and restores the previous state if it fails or the
// "Tx.Commit" failure is set.
func (t memoryTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	t.db.mu.Lock()
	t.db.TxCount++
	if err := t.db.fail("Tx.Begin"); err != nil {
		t.db.mu.Unlock()
		return err
	}
	snap := t.db.snapshot()
	t.db.mu.Unlock()

	err := fn(ctx, t.db.Stores())

	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if err == nil {
		err = t.db.fail("Tx.Commit")
	}
	if err != nil {
		t.db.users = snap.users
		t.db.tasks = snap.tasks
		t.db.notifications = snap.notifications
	}
	return err
}

func cloneTask(t domain.Task) domain.Task {
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		t.AssignedTo = &id
	}
	if t.ReminderSentAt != nil {
		at := *t.ReminderSentAt
		t.ReminderSentAt = &at
	}
	t.Creator = nil
	t.Assignee = nil
	comments := make([]domain.Comment, len(t.Comments))
	copy(comments, t.Comments)
	t.Comments = comments
	return t
}

func timePtr(t time.Time) *time.Time { return &t }
