// Package eventlog keeps an append-only trail of balance-affecting mutations
// (expense writes, payment status changes, balance repairs, khata
// recomputations). Events are recorded off the request path by a worker so a
// slow sink never blocks a mutation.
package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Well-known event types.
const (
	TypeExpenseCreated       = "expense.created"
	TypeExpenseUpdated       = "expense.updated"
	TypeExpenseDeleted       = "expense.deleted"
	TypePaymentStatusChanged = "payment.status_changed"
	TypeBalanceRepaired      = "balance.repaired"
	TypeKhataRecomputed      = "khata.recomputed"
)

// Event is one recorded mutation.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      string            `json:"event_type"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// New constructs an event with a fresh id and timestamp.
func New(eventType string, data any, metadata map[string]string) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Data:      data,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// Sink persists events.
type Sink interface {
	SaveEvent(ctx context.Context, e Event) error
}

// Recorder is the write side handed to services. Record must not block the
// caller's request.
type Recorder interface {
	Record(e Event)
}

// Nop discards events; used in tests and when no sink is configured.
type Nop struct{}

func (Nop) Record(Event) {}
