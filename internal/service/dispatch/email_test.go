package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/events"
	"github.com/phrazzld/teamtasks-api/internal/job"
	"github.com/phrazzld/teamtasks-api/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	jobs []job.Job
	err  error
}

func (s *stubSubmitter) Submit(ctx context.Context, j job.Job) error {
	s.jobs = append(s.jobs, j)
	return s.err
}

func storedNotification(t *testing.T, db *mocks.MemoryDB, recipient *domain.User) *domain.Notification {
	t.Helper()
	n, err := domain.NewNotification(recipient.ID, nil, domain.NotificationTaskAssigned, "Task Assigned", "msg", nil)
	require.NoError(t, err)
	require.NoError(t, db.Notifications().Create(context.Background(), n))
	return n
}

func TestEmailJob_Execute(t *testing.T) {
	db := mocks.NewMemoryDB()
	user := db.NewTestUser("will", domain.RoleUser)
	n := storedNotification(t, db, user)
	sender := &mocks.MockSender{}

	req := EmailRequest{NotificationID: n.ID, ToName: user.Name, To: user.Email, Subject: "Task Assigned", Body: "body"}
	j, err := NewEmailJob(req, sender, db.Notifications(), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, EmailJobType, j.Type())

	require.NoError(t, j.Execute(context.Background()))

	sent := sender.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, user.Email, sent[0].To)
	assert.Equal(t, "Task Assigned", sent[0].Subject)

	stored, err := db.Notifications().GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailSent)
}

func TestEmailJob_SendFailure(t *testing.T) {
	db := mocks.NewMemoryDB()
	user := db.NewTestUser("will", domain.RoleUser)
	n := storedNotification(t, db, user)
	sender := &mocks.MockSender{Err: errors.New("relay down")}

	j, err := NewEmailJob(EmailRequest{NotificationID: n.ID, To: user.Email, Subject: "s"}, sender, db.Notifications(), nil)
	require.NoError(t, err)

	err = j.Execute(context.Background())
	assert.ErrorContains(t, err, "relay down")

	stored, err := db.Notifications().GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.False(t, stored.EmailSent)
}

func TestEmailJob_MarkFailureIsNotFatal(t *testing.T) {
	db := mocks.NewMemoryDB()
	db.FailOn("Notifications.MarkEmailSent", errors.New("db down"))

	j, err := NewEmailJob(EmailRequest{NotificationID: uuid.New(), To: "a@example.com", Subject: "s"},
		&mocks.MockSender{}, db.Notifications(), discardLogger())
	require.NoError(t, err)

	assert.NoError(t, j.Execute(context.Background()))
}

func TestEmailJobFactory(t *testing.T) {
	req := EmailRequest{NotificationID: uuid.New(), To: "a@example.com", Subject: "s", Body: "b"}
	original, err := NewEmailJob(req, &mocks.MockSender{}, mocks.NewMemoryDB().Notifications(), nil)
	require.NoError(t, err)

	factory := EmailJobFactory(&mocks.MockSender{}, mocks.NewMemoryDB().Notifications(), discardLogger())
	rebuilt, err := factory(job.Record{ID: original.ID(), Type: EmailJobType, Payload: original.Payload()})
	require.NoError(t, err)

	assert.Equal(t, original.ID(), rebuilt.ID())
	assert.Equal(t, req, rebuilt.(*EmailJob).Request())

	_, err = factory(job.Record{ID: uuid.New(), Type: EmailJobType, Payload: []byte("not json")})
	assert.Error(t, err)
}

func TestEmailHandler(t *testing.T) {
	req := EmailRequest{NotificationID: uuid.New(), To: "a@example.com", Subject: "s", Body: "b"}

	t.Run("submits email job", func(t *testing.T) {
		submitter := &stubSubmitter{}
		h := NewEmailHandler(submitter, &mocks.MockSender{}, mocks.NewMemoryDB().Notifications(), discardLogger())

		event, err := events.NewNotificationEvent(events.TypeEmailRequested, req)
		require.NoError(t, err)
		require.NoError(t, h.HandleEvent(context.Background(), event))

		require.Len(t, submitter.jobs, 1)
		assert.Equal(t, req, submitter.jobs[0].(*EmailJob).Request())
	})

	t.Run("ignores other events", func(t *testing.T) {
		submitter := &stubSubmitter{}
		h := NewEmailHandler(submitter, &mocks.MockSender{}, mocks.NewMemoryDB().Notifications(), discardLogger())

		event, err := events.NewNotificationEvent(events.TypeNotificationCreated, req)
		require.NoError(t, err)
		require.NoError(t, h.HandleEvent(context.Background(), event))
		assert.Empty(t, submitter.jobs)
	})

	t.Run("returns submit errors", func(t *testing.T) {
		submitter := &stubSubmitter{err: job.ErrQueueFull}
		h := NewEmailHandler(submitter, &mocks.MockSender{}, mocks.NewMemoryDB().Notifications(), discardLogger())

		event, err := events.NewNotificationEvent(events.TypeEmailRequested, req)
		require.NoError(t, err)
		assert.ErrorIs(t, h.HandleEvent(context.Background(), event), job.ErrQueueFull)
	})
}
