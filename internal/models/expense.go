package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is an immutable record of money one participant spent on behalf
// of a set of debtors. The store assigns ID and CreatedAt on insert; IDs are
// monotonically increasing, so ID order is creation order.
type Expense struct {
	// ID is the store-assigned identifier.
	ID int64

	// PayerID references the participant who paid. Must exist in the
	// participant directory at recording time.
	PayerID int64

	// Amount is the total cost. Always positive, at most two decimal places.
	Amount decimal.Decimal

	// Description is a non-empty human-readable note ("dinner", "cab").
	Description string

	// ShareAmount is the base per-debtor split applied when the expense was
	// recorded. Individual Debts may carry one extra cent on top of this
	// when the amount does not divide evenly.
	ShareAmount decimal.Decimal

	// CreatedAt is set once by the store and never modified.
	CreatedAt time.Time
}
