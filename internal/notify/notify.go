// Package notify delivers user notifications. Senders of notifications treat
// delivery as fire-and-forget: a failed delivery is logged by the caller and
// never undoes the state change that triggered it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

// Sink accepts notifications for delivery.
type Sink interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Stamp assigns an ID and creation time to n if it has none.
func Stamp(n *model.Notification, now time.Time) {
	if n.ID == "" {
		n.ID = uuid.Must(uuid.NewV7()).String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now.UTC()
	}
}

// Multi fans a notification out to every sink and joins their errors.
type Multi []Sink

// Notify delivers n to all sinks, continuing past failures.
func (m Multi) Notify(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Memory keeps notifications in process. Useful in tests and as a sink for
// the CLI, where nothing is delivered.
type Memory struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// FailWith makes every subsequent Notify call return err.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Notify records n.
func (m *Memory) Notify(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return fmt.Errorf("notifying %s: %w", n.UserID, m.err)
	}
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications.
func (m *Memory) Sent() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, len(m.sent))
	copy(out, m.sent)
	return out
}

// For returns the recorded notifications addressed to userID.
func (m *Memory) For(userID string) []model.Notification {
	var out []model.Notification
	for _, n := range m.Sent() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
