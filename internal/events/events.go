// Package events defines the ledger's outbound event stream. The engine
// has no side effects beyond its store writes; notification delivery is an
// external collaborator subscribed to these events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// Type identifies the kind of ledger event.
type Type string

const (
	TypeExpenseRecorded  Type = "expense.recorded"
	TypeDebtTransitioned Type = "debt.transitioned"
)

// Event is the envelope published after a successful ledger write.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	ExpenseID int64           `json:"expense_id"`
	PayerID   int64           `json:"payer_id"`
	Amount    decimal.Decimal `json:"amount,omitempty"`

	// Debt transition fields, empty for expense.recorded.
	DebtorID int64             `json:"debtor_id,omitempty"`
	Status   models.DebtStatus `json:"status,omitempty"`
}

// NewEvent stamps a fresh envelope of the given type.
func NewEvent(t Type) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers ledger events to interested collaborators. Publish
// failures never roll back the ledger write they describe.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards all events. Used when no broker is configured and in tests.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event Event) error { return nil }
func (Nop) Close() error                                   { return nil }
