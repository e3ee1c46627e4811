package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

// Outbox queues outbound messages per user until the transport drains them.
type Outbox struct {
	mu       sync.Mutex
	messages map[domain.UserID][]domain.OutboundMessage
	limit    int
}

// NewOutbox keeps at most limit messages per user, dropping the oldest.
// limit <= 0 means unbounded.
func NewOutbox(limit int) *Outbox {
	return &Outbox{
		messages: make(map[domain.UserID][]domain.OutboundMessage),
		limit:    limit,
	}
}

// SendPrompt implements domain.Notifier.
func (o *Outbox) SendPrompt(ctx context.Context, msg domain.OutboundMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	q := append(o.messages[msg.UserID], msg)
	if o.limit > 0 && len(q) > o.limit {
		q = q[len(q)-o.limit:]
	}
	o.messages[msg.UserID] = q
	return nil
}

// Drain returns and removes all queued messages for a user, oldest first.
func (o *Outbox) Drain(userID domain.UserID) []domain.OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()

	msgs := o.messages[userID]
	delete(o.messages, userID)
	return msgs
}

// Peek returns the queued messages without removing them.
func (o *Outbox) Peek(userID domain.UserID) []domain.OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.OutboundMessage(nil), o.messages[userID]...)
}
