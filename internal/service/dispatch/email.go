package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/events"
	"github.com/phrazzld/teamtasks-api/internal/job"
	"github.com/phrazzld/teamtasks-api/internal/platform/mail"
	"github.com/phrazzld/teamtasks-api/internal/redact"
)

// EmailJobType identifies persisted email jobs.
const EmailJobType = "notification_email"

// EmailMarker records that a notification's email copy went out.
type EmailMarker interface {
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
}

// EmailJob sends the email copy of one notification.
type EmailJob struct {
	id      uuid.UUID
	request EmailRequest
	payload []byte
	sender  mail.Sender
	marker  EmailMarker
	logger  *slog.Logger
}

var _ job.Job = (*EmailJob)(nil)

// NewEmailJob creates an EmailJob for req.
func NewEmailJob(req EmailRequest, sender mail.Sender, marker EmailMarker, logger *slog.Logger) (*EmailJob, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode email job payload: %w", err)
	}
	return newEmailJob(uuid.New(), req, payload, sender, marker, logger), nil
}

func newEmailJob(
	id uuid.UUID,
	req EmailRequest,
	payload []byte,
	sender mail.Sender,
	marker EmailMarker,
	logger *slog.Logger,
) *EmailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailJob{
		id:      id,
		request: req,
		payload: payload,
		sender:  sender,
		marker:  marker,
		logger:  logger,
	}
}

// ID implements job.Job.
func (j *EmailJob) ID() uuid.UUID { return j.id }

// Type implements job.Job.
func (j *EmailJob) Type() string { return EmailJobType }

// Payload implements job.Job.
func (j *EmailJob) Payload() []byte { return j.payload }

// Request returns the email the job will send.
func (j *EmailJob) Request() EmailRequest { return j.request }

// Execute sends the email, then flags the notification. A failure to flag the
// notification is logged only, since the email has already gone out.
func (j *EmailJob) Execute(ctx context.Context) error {
	err := j.sender.Send(ctx, mail.Message{
		ToName:  j.request.ToName,
		To:      j.request.To,
		Subject: j.request.Subject,
		Body:    j.request.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	j.logger.Debug("notification email sent",
		"notification_id", j.request.NotificationID,
		"to", redact.Address(j.request.To))

	if err := j.marker.MarkEmailSent(ctx, j.request.NotificationID); err != nil {
		j.logger.Warn("email sent but notification not flagged",
			"notification_id", j.request.NotificationID,
			"error", err)
	}
	return nil
}

// EmailJobFactory rebuilds persisted email jobs for the job runner.
func EmailJobFactory(sender mail.Sender, marker EmailMarker, logger *slog.Logger) job.Factory {
	return func(rec job.Record) (job.Job, error) {
		var req EmailRequest
		if err := json.Unmarshal(rec.Payload, &req); err != nil {
			return nil, fmt.Errorf("failed to decode email job payload: %w", err)
		}
		return newEmailJob(rec.ID, req, rec.Payload, sender, marker, logger), nil
	}
}

// JobSubmitter accepts jobs for background execution.
type JobSubmitter interface {
	Submit(ctx context.Context, j job.Job) error
}

// EmailHandler turns email request events into email jobs.
type EmailHandler struct {
	submitter JobSubmitter
	sender    mail.Sender
	marker    EmailMarker
	logger    *slog.Logger
}

var _ events.EventHandler = (*EmailHandler)(nil)

// NewEmailHandler creates an EmailHandler.
func NewEmailHandler(submitter JobSubmitter, sender mail.Sender, marker EmailMarker, logger *slog.Logger) *EmailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailHandler{
		submitter: submitter,
		sender:    sender,
		marker:    marker,
		logger:    logger.With("component", "email_handler"),
	}
}

// HandleEvent implements events.EventHandler. Events of other types are ignored.
func (h *EmailHandler) HandleEvent(ctx context.Context, event *events.NotificationEvent) error {
	if event.Type != events.TypeEmailRequested {
		return nil
	}

	var req EmailRequest
	if err := event.UnmarshalPayload(&req); err != nil {
		return fmt.Errorf("failed to decode email request: %w", err)
	}

	j, err := NewEmailJob(req, h.sender, h.marker, h.logger)
	if err != nil {
		return err
	}
	if err := h.submitter.Submit(ctx, j); err != nil {
		return fmt.Errorf("failed to submit email job: %w", err)
	}

	h.logger.Debug("email job submitted",
		"job_id", j.ID(),
		"notification_id", req.NotificationID)
	return nil
}
