// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Store defines the interface for ledger storage operations. The
// abstraction allows swapping backends (in-memory, SQLite, PostgreSQL)
// without changing the engine.
//
// Implementations must uphold the ledger invariants:
//
//   - CreateExpense is atomic: the Expense and all of its Debts become
//     visible together or not at all. No reader ever sees a partial set.
//   - Debt keys (expense id, debtor id) are unique.
//   - UpdateDebtStatus is a compare-and-swap on the stored status: under
//     concurrent attempts on the same debt, exactly one caller with a given
//     expected status wins; losers receive a StatusConflictError carrying
//     the current status.
//   - Reads return committed state only.
type Store interface {
	// CreateExpense persists an expense and its full debt set atomically.
	// The store assigns expense.ID and expense.CreatedAt and stamps the
	// expense id onto each debt.
	CreateExpense(ctx context.Context, expense *models.Expense, debts []models.Debt) error

	// GetExpense retrieves an expense by id. Returns ErrNotFound if absent.
	GetExpense(ctx context.Context, expenseID int64) (*models.Expense, error)

	// GetDebt retrieves one debt by its composite key.
	GetDebt(ctx context.Context, expenseID, debtorID int64) (*models.Debt, error)

	// ListDebts returns all debts of an expense ordered by debtor id.
	ListDebts(ctx context.Context, expenseID int64) ([]models.Debt, error)

	// ListDebtsByDebtor returns every debt of a debtor joined with its
	// expense, ordered by expense creation then expense id.
	ListDebtsByDebtor(ctx context.Context, debtorID int64) ([]models.DebtView, error)

	// ListDebtsByPayer returns every debt owed toward expenses paid by the
	// given participant, ordered by expense creation then debtor id.
	ListDebtsByPayer(ctx context.Context, payerID int64) ([]models.DebtView, error)

	// ListMarkedByPayer returns the debts in status marked whose expense was
	// paid by the given participant, ordered by expense creation then
	// debtor id.
	ListMarkedByPayer(ctx context.Context, payerID int64) ([]models.DebtView, error)

	// UpdateDebtStatus advances a debt from expected to next if and only if
	// the stored status still equals expected. Returns ErrNotFound for an
	// unknown key and a *StatusConflictError when the compare fails.
	UpdateDebtStatus(ctx context.Context, expenseID, debtorID int64, expected, next models.DebtStatus) error

	// Close releases any resources held by the store.
	Close() error
}
