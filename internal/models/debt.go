package models

import "github.com/shopspring/decimal"

// DebtStatus is the confirmation state of a single Debt.
//
// The only legal movements are pending→marked (debtor says they paid),
// marked→confirmed (payer acknowledges receipt) and pending→confirmed
// (payer settles directly). A Debt never moves backward; confirmed is
// terminal.
type DebtStatus string

const (
	StatusPending   DebtStatus = "pending"
	StatusMarked    DebtStatus = "marked"
	StatusConfirmed DebtStatus = "confirmed"
)

// Valid reports whether s is one of the three known statuses.
func (s DebtStatus) Valid() bool {
	switch s {
	case StatusPending, StatusMarked, StatusConfirmed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s DebtStatus) Terminal() bool {
	return s == StatusConfirmed
}

// LegalTransition reports whether moving from to next is one of the three
// allowed transitions of the workflow.
func LegalTransition(from, next DebtStatus) bool {
	switch {
	case from == StatusPending && next == StatusMarked:
		return true
	case from == StatusMarked && next == StatusConfirmed:
		return true
	case from == StatusPending && next == StatusConfirmed:
		return true
	}
	return false
}

// DebtKey is the composite identity of a Debt. A debtor owes a given
// expense at most once.
type DebtKey struct {
	ExpenseID int64 `json:"expense_id"`
	DebtorID  int64 `json:"debtor_id"`
}

// Debt is one debtor's obligation toward one Expense. All Debts for an
// Expense are created together with the Expense and are never deleted;
// only Status advances.
type Debt struct {
	ExpenseID int64
	DebtorID  int64

	// ShareAmount is this debtor's exact share. Per-debtor shares sum to
	// the Expense amount exactly under the default split policy.
	ShareAmount decimal.Decimal

	Status DebtStatus
}

// Key returns the composite identity of the debt.
func (d Debt) Key() DebtKey {
	return DebtKey{ExpenseID: d.ExpenseID, DebtorID: d.DebtorID}
}
