package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LogTransport records each message in the log instead of sending it.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport. If logger is nil, slog.Default() is used.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger.With(slog.String("component", "mail_log_transport"))}
}

// Deliver implements Transport. The recipient address is not logged.
func (t *LogTransport) Deliver(ctx context.Context, to string, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.logger.Info("email message composed", slog.Int("size_bytes", len(raw)))
	return nil
}

// OutboxTransport writes each message to its own .eml file in a directory.
type OutboxTransport struct {
	dir string
	now func() time.Time
}

// NewOutboxTransport creates the outbox directory if needed.
func NewOutboxTransport(dir string) (*OutboxTransport, error) {
	if dir == "" {
		return nil, fmt.Errorf("outbox directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create outbox directory: %w", err)
	}
	return &OutboxTransport{dir: dir, now: time.Now}, nil
}

// Deliver implements Transport. Files are written under a temporary name and
// renamed, so readers never see a partial message.
func (t *OutboxTransport) Deliver(ctx context.Context, to string, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := fmt.Sprintf("%s-%s.eml", t.now().UTC().Format("20060102T150405"), uuid.NewString())
	tmp := filepath.Join(t.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, raw, 0o640); err != nil {
		return fmt.Errorf("failed to write outbox file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(t.dir, name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize outbox file: %w", err)
	}
	return nil
}
