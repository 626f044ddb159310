package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// cents converts a decimal amount to integer cents for storage.
func cents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

// amount converts stored cents back to a two-decimal amount.
func amount(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// CreateExpense persists an expense and its debt set in one transaction.
// Either all rows become visible together or none do.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, debts []models.Debt) error {
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO expenses (payer_id, amount_cents, description, share_cents, created_at) VALUES (?, ?, ?, ?, ?)",
		expense.PayerID, cents(expense.Amount), expense.Description, cents(expense.ShareAmount), expense.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read expense id: %w", err)
	}

	seen := make(map[int64]bool, len(debts))
	for i := range debts {
		if seen[debts[i].DebtorID] {
			return storage.ErrDuplicateDebt
		}
		seen[debts[i].DebtorID] = true

		debts[i].ExpenseID = id
		_, err = tx.ExecContext(ctx,
			"INSERT INTO debts (expense_id, debtor_id, share_cents, status) VALUES (?, ?, ?, ?)",
			id, debts[i].DebtorID, cents(debts[i].ShareAmount), string(debts[i].Status),
		)
		if err != nil {
			return fmt.Errorf("failed to insert debt: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	expense.ID = id
	return nil
}

// GetExpense retrieves an expense by id.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID int64) (*models.Expense, error) {
	var (
		e          models.Expense
		amt, share int64
		created    int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, payer_id, amount_cents, description, share_cents, created_at FROM expenses WHERE id = ?",
		expenseID,
	).Scan(&e.ID, &e.PayerID, &amt, &e.Description, &share, &created)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	e.Amount = amount(amt)
	e.ShareAmount = amount(share)
	e.CreatedAt = timeFromUnix(created)
	return &e, nil
}
