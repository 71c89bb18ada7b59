package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/teamtasks-api/internal/platform/mail"
)

// MockSender implements mail.Sender and records every message.
type MockSender struct {
	SendFn func(ctx context.Context, msg mail.Message) error
	Err    error

	mu   sync.Mutex
	Sent []mail.Message
}

var _ mail.Sender = (*MockSender)(nil)

// Send implements mail.Sender.
func (m *MockSender) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()

	if m.SendFn != nil {
		return m.SendFn(ctx, msg)
	}
	return m.Err
}

// Messages returns a copy of the recorded messages.
func (m *MockSender) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.Sent...)
}
