package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// GetDebt retrieves one debt by its composite key.
func (s *SQLiteStore) GetDebt(ctx context.Context, expenseID, debtorID int64) (*models.Debt, error) {
	var (
		d      models.Debt
		share  int64
		status string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT expense_id, debtor_id, share_cents, status FROM debts WHERE expense_id = ? AND debtor_id = ?",
		expenseID, debtorID,
	).Scan(&d.ExpenseID, &d.DebtorID, &share, &status)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}

	d.ShareAmount = amount(share)
	d.Status = models.DebtStatus(status)
	return &d, nil
}

// ListDebts returns all debts of an expense ordered by debtor id.
func (s *SQLiteStore) ListDebts(ctx context.Context, expenseID int64) ([]models.Debt, error) {
	if _, err := s.GetExpense(ctx, expenseID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, debtor_id, share_cents, status FROM debts WHERE expense_id = ? ORDER BY debtor_id",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []models.Debt
	for rows.Next() {
		var (
			d      models.Debt
			share  int64
			status string
		)
		if err := rows.Scan(&d.ExpenseID, &d.DebtorID, &share, &status); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		d.ShareAmount = amount(share)
		d.Status = models.DebtStatus(status)
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return debts, nil
}

const debtViewColumns = `d.expense_id, d.debtor_id, e.payer_id, e.description, d.share_cents, d.status, e.created_at`

// ListDebtsByDebtor returns every debt of a debtor joined with its expense.
func (s *SQLiteStore) ListDebtsByDebtor(ctx context.Context, debtorID int64) ([]models.DebtView, error) {
	return s.queryViews(ctx,
		`SELECT `+debtViewColumns+`
		 FROM debts d JOIN expenses e ON e.id = d.expense_id
		 WHERE d.debtor_id = ?
		 ORDER BY e.created_at, e.id, d.debtor_id`,
		debtorID,
	)
}

// ListDebtsByPayer returns every debt owed toward the payer's expenses.
func (s *SQLiteStore) ListDebtsByPayer(ctx context.Context, payerID int64) ([]models.DebtView, error) {
	return s.queryViews(ctx,
		`SELECT `+debtViewColumns+`
		 FROM debts d JOIN expenses e ON e.id = d.expense_id
		 WHERE e.payer_id = ?
		 ORDER BY e.created_at, e.id, d.debtor_id`,
		payerID,
	)
}

// ListMarkedByPayer returns the marked debts awaiting the payer's
// confirmation, ordered by expense creation then debtor id.
func (s *SQLiteStore) ListMarkedByPayer(ctx context.Context, payerID int64) ([]models.DebtView, error) {
	return s.queryViews(ctx,
		`SELECT `+debtViewColumns+`
		 FROM debts d JOIN expenses e ON e.id = d.expense_id
		 WHERE e.payer_id = ? AND d.status = ?
		 ORDER BY e.created_at, e.id, d.debtor_id`,
		payerID, string(models.StatusMarked),
	)
}

func (s *SQLiteStore) queryViews(ctx context.Context, query string, args ...any) ([]models.DebtView, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query debt views: %w", err)
	}
	defer rows.Close()

	var views []models.DebtView
	for rows.Next() {
		var (
			v       models.DebtView
			share   int64
			status  string
			created int64
		)
		if err := rows.Scan(&v.ExpenseID, &v.DebtorID, &v.PayerID, &v.Description, &share, &status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan debt view: %w", err)
		}
		v.ShareAmount = amount(share)
		v.Status = models.DebtStatus(status)
		v.ExpenseCreatedAt = timeFromUnix(created)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debt views: %w", err)
	}
	return views, nil
}

// UpdateDebtStatus performs the compare-and-swap as a single conditional
// UPDATE: the WHERE clause carries the expected status, so under concurrent
// attempts exactly one statement changes a row. Losers re-read the row to
// report the status that beat them.
func (s *SQLiteStore) UpdateDebtStatus(ctx context.Context, expenseID, debtorID int64, expected, next models.DebtStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE debts SET status = ? WHERE expense_id = ? AND debtor_id = ? AND status = ?",
		string(next), expenseID, debtorID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("failed to update debt status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	d, err := s.GetDebt(ctx, expenseID, debtorID)
	if err != nil {
		return err
	}
	return &storage.StatusConflictError{
		ExpenseID: expenseID,
		DebtorID:  debtorID,
		Expected:  expected,
		Current:   d.Status,
	}
}
