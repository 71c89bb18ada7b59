package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/phrazzld/teamtasks-api/internal/config"
)

// ErrInvalidMessage is returned for messages missing a recipient or subject.
var ErrInvalidMessage = errors.New("invalid mail message")

// Message is a plain-text email addressed to one recipient.
type Message struct {
	ToName  string
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Transport moves a composed message to its destination.
type Transport interface {
	Deliver(ctx context.Context, to string, raw []byte) error
}

// Compose renders msg as an RFC 5322 message from the given sender address.
func Compose(from *gomail.Address, msg Message, now time.Time) ([]byte, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}

	var h gomail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*gomail.Address{from})
	h.SetAddressList("To", []*gomail.Address{{Name: msg.ToName, Address: msg.To}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, msg.Body); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}

// Mailer composes messages and hands them to a Transport.
type Mailer struct {
	from      *gomail.Address
	transport Transport
	now       func() time.Time
	logger    *slog.Logger
}

var _ Sender = (*Mailer)(nil)

// NewMailer creates a Mailer sending from the given address.
func NewMailer(from string, transport Transport, logger *slog.Logger) (*Mailer, error) {
	addr, err := gomail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", from, err)
	}
	if transport == nil {
		return nil, errors.New("transport cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{
		from:      addr,
		transport: transport,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "mailer")),
	}, nil
}

// Send implements Sender.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	raw, err := Compose(m.from, msg, m.now())
	if err != nil {
		return err
	}
	if err := m.transport.Deliver(ctx, msg.To, raw); err != nil {
		return fmt.Errorf("failed to deliver message: %w", err)
	}
	m.logger.Debug("email delivered", slog.String("subject", msg.Subject))
	return nil
}

// New builds the Sender selected by cfg.
func New(cfg config.MailConfig, logger *slog.Logger) (*Mailer, error) {
	var transport Transport
	switch cfg.Transport {
	case "outbox":
		ob, err := NewOutboxTransport(cfg.OutboxDir)
		if err != nil {
			return nil, err
		}
		transport = ob
	case "log", "":
		transport = NewLogTransport(logger)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
	return NewMailer(cfg.From, transport, logger)
}
