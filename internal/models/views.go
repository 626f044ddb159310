package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseView is the full history of one Expense: the record itself plus
// every Debt it spawned, ordered by debtor identifier for determinism.
type ExpenseView struct {
	Expense Expense
	Debts   []Debt
}

// DebtView is a Debt joined with the facts of its owning Expense, used by
// the read-side queries (balances, pending confirmations, summaries).
type DebtView struct {
	ExpenseID        int64
	DebtorID         int64
	PayerID          int64
	Description      string
	ShareAmount      decimal.Decimal
	Status           DebtStatus
	ExpenseCreatedAt time.Time
}

// Summary is the two-sided view of one participant's position: debts owed
// to them (they paid) and debts they owe (they are a debtor), across all
// statuses.
type Summary struct {
	OwedToMe []DebtView
	IOwe     []DebtView
}
