package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotification(t *testing.T, db *mocks.MemoryDB, recipient uuid.UUID, createdAt time.Time) *domain.Notification {
	t.Helper()
	n, err := domain.NewNotification(recipient, nil, domain.NotificationTaskAssigned, "New Task Assigned", "hello", nil)
	require.NoError(t, err)
	n.CreatedAt = createdAt
	require.NoError(t, db.Notifications().Create(context.Background(), n))
	return n
}

func newNotificationService(db *mocks.MemoryDB) NotificationService {
	return NewNotificationService(db.Notifications(), db.Users(), discardLogger())
}

func TestNotificationService_ListUnread(t *testing.T) {
	db := mocks.NewMemoryDB()
	svc := newNotificationService(db)
	alice := db.NewTestUser("alice", domain.RoleUser)
	bob := db.NewTestUser("bob", domain.RoleUser)

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedNotification(t, db, alice.ID, base.Add(time.Duration(i)*time.Hour))
	}
	read := seedNotification(t, db, alice.ID, base.Add(10*time.Hour))
	require.NoError(t, db.Notifications().MarkRead(context.Background(), read.ID))
	seedNotification(t, db, bob.ID, base)

	page, err := svc.ListUnread(context.Background(), alice.Actor(), domain.Page{Number: 1, Size: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, base.Add(2*time.Hour), page.Items[0].CreatedAt)
	require.NotNil(t, page.Pagination.Next)
	assert.Equal(t, 2, page.Pagination.Next.Page)

	_, err = svc.ListUnread(context.Background(), domain.Actor{}, domain.Page{})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestNotificationService_MarkRead(t *testing.T) {
	db := mocks.NewMemoryDB()
	svc := newNotificationService(db)
	alice := db.NewTestUser("alice", domain.RoleUser)
	admin := db.NewTestUser("root", domain.RoleAdmin)
	n := seedNotification(t, db, alice.ID, time.Now())

	_, err := svc.MarkRead(context.Background(), admin.Actor(), n.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	got, err := svc.MarkRead(context.Background(), alice.Actor(), n.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	again, err := svc.MarkRead(context.Background(), alice.Actor(), n.ID)
	require.NoError(t, err)
	assert.True(t, again.Read)

	_, err = svc.MarkRead(context.Background(), alice.Actor(), uuid.New())
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	db := mocks.NewMemoryDB()
	svc := newNotificationService(db)
	alice := db.NewTestUser("alice", domain.RoleUser)
	bob := db.NewTestUser("bob", domain.RoleUser)
	seedNotification(t, db, alice.ID, time.Now())
	seedNotification(t, db, alice.ID, time.Now())
	seedNotification(t, db, bob.ID, time.Now())

	n, err := svc.MarkAllRead(context.Background(), alice.Actor())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	own, err := svc.ListUnread(context.Background(), alice.Actor(), domain.NewPage(1, 10))
	require.NoError(t, err)
	assert.Empty(t, own.Items)
	assert.Equal(t, 0, own.Total)

	page, err := svc.ListUnread(context.Background(), bob.Actor(), domain.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestNotificationService_Delete(t *testing.T) {
	db := mocks.NewMemoryDB()
	svc := newNotificationService(db)
	alice := db.NewTestUser("alice", domain.RoleUser)
	bob := db.NewTestUser("bob", domain.RoleUser)
	n := seedNotification(t, db, alice.ID, time.Now())

	assert.ErrorIs(t, svc.Delete(context.Background(), bob.Actor(), n.ID), ErrNotAuthorized)
	require.NoError(t, svc.Delete(context.Background(), alice.Actor(), n.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), alice.Actor(), n.ID), ErrNotificationNotFound)
}

func TestNotificationService_UpdatePreferences(t *testing.T) {
	db := mocks.NewMemoryDB()
	svc := newNotificationService(db)
	alice := db.NewTestUser("alice", domain.RoleUser)

	prefs, err := svc.UpdatePreferences(context.Background(), alice.Actor(),
		domain.PreferencesPatch{Muted: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationPreferences{Email: true, InApp: true, Muted: true}, prefs)

	prefs, err = svc.UpdatePreferences(context.Background(), alice.Actor(),
		domain.PreferencesPatch{Email: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationPreferences{Email: false, InApp: true, Muted: true}, prefs)

	_, err = svc.UpdatePreferences(context.Background(), domain.Actor{ID: uuid.New()},
		domain.PreferencesPatch{Email: ptr(true)})
	assert.ErrorIs(t, err, ErrUserNotFound)

	db.FailOn("Users.UpdatePreferences", errors.New("timeout"))
	_, err = svc.UpdatePreferences(context.Background(), alice.Actor(), domain.PreferencesPatch{})
	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
}
