// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface, matching the original deployment target of the
// ledger.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/directory"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

var (
	_ storage.Store       = (*PostgresStore)(nil)
	_ directory.Directory = (*PostgresStore)(nil)
	_ directory.Registrar = (*PostgresStore)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id BIGINT PRIMARY KEY,
    display_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id BIGSERIAL PRIMARY KEY,
    payer_id BIGINT NOT NULL,
    amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
    description TEXT NOT NULL,
    share_cents BIGINT NOT NULL CHECK (share_cents > 0),
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS debts (
    expense_id BIGINT NOT NULL REFERENCES expenses(id),
    debtor_id BIGINT NOT NULL,
    share_cents BIGINT NOT NULL CHECK (share_cents > 0),
    status TEXT NOT NULL CHECK (status IN ('pending', 'marked', 'confirmed')),
    PRIMARY KEY (expense_id, debtor_id)
);

CREATE INDEX IF NOT EXISTS idx_debts_debtor_id ON debts(debtor_id);
CREATE INDEX IF NOT EXISTS idx_expenses_payer_id ON expenses(payer_id);
`

// PostgresStore implements storage.Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// New opens a connection pool against databaseURL and ensures the schema
// exists.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func cents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

func amount(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// CreateExpense persists an expense and its debt set in one transaction.
func (p *PostgresStore) CreateExpense(ctx context.Context, expense *models.Expense, debts []models.Debt) error {
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO expenses (payer_id, amount_cents, description, share_cents, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		expense.PayerID, cents(expense.Amount), expense.Description, cents(expense.ShareAmount), expense.CreatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	seen := make(map[int64]bool, len(debts))
	for i := range debts {
		if seen[debts[i].DebtorID] {
			return storage.ErrDuplicateDebt
		}
		seen[debts[i].DebtorID] = true

		debts[i].ExpenseID = id
		_, err = tx.ExecContext(ctx,
			"INSERT INTO debts (expense_id, debtor_id, share_cents, status) VALUES ($1, $2, $3, $4)",
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
func (p *PostgresStore) GetExpense(ctx context.Context, expenseID int64) (*models.Expense, error) {
	var (
		e          models.Expense
		amt, share int64
	)
	err := p.db.QueryRowContext(ctx,
		"SELECT id, payer_id, amount_cents, description, share_cents, created_at FROM expenses WHERE id = $1",
		expenseID,
	).Scan(&e.ID, &e.PayerID, &amt, &e.Description, &share, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	e.Amount = amount(amt)
	e.ShareAmount = amount(share)
	return &e, nil
}

// GetDebt retrieves one debt by its composite key.
func (p *PostgresStore) GetDebt(ctx context.Context, expenseID, debtorID int64) (*models.Debt, error) {
	var (
		d      models.Debt
		share  int64
		status string
	)
	err := p.db.QueryRowContext(ctx,
		"SELECT expense_id, debtor_id, share_cents, status FROM debts WHERE expense_id = $1 AND debtor_id = $2",
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
func (p *PostgresStore) ListDebts(ctx context.Context, expenseID int64) ([]models.Debt, error) {
	if _, err := p.GetExpense(ctx, expenseID); err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx,
		"SELECT expense_id, debtor_id, share_cents, status FROM debts WHERE expense_id = $1 ORDER BY debtor_id",
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
func (p *PostgresStore) ListDebtsByDebtor(ctx context.Context, debtorID int64) ([]models.DebtView, error) {
	return p.queryViews(ctx,
		`SELECT `+debtViewColumns+`
		 FROM debts d JOIN expenses e ON e.id = d.expense_id
		 WHERE d.debtor_id = $1
		 ORDER BY e.created_at, e.id, d.debtor_id`,
		debtorID,
	)
}

// ListDebtsByPayer returns every debt owed toward the payer's expenses.
func (p *PostgresStore) ListDebtsByPayer(ctx context.Context, payerID int64) ([]models.DebtView, error) {
	return p.queryViews(ctx,
		`SELECT `+debtViewColumns+`
		 FROM debts d JOIN expenses e ON e.id = d.expense_id
		 WHERE e.payer_id = $1
		 ORDER BY e.created_at, e.id, d.debtor_id`,
		payerID,
	)
}

// ListMarkedByPayer returns marked debts awaiting the payer's confirmation.
func (p *PostgresStore) ListMarkedByPayer(ctx context.Context, payerID int64) ([]models.DebtView, error) {
	return p.queryViews(ctx,
		`SELECT `+debtViewColumns+`
		 FROM debts d JOIN expenses e ON e.id = d.expense_id
		 WHERE e.payer_id = $1 AND d.status = $2
		 ORDER BY e.created_at, e.id, d.debtor_id`,
		payerID, string(models.StatusMarked),
	)
}

func (p *PostgresStore) queryViews(ctx context.Context, query string, args ...any) ([]models.DebtView, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query debt views: %w", err)
	}
	defer rows.Close()

	var views []models.DebtView
	for rows.Next() {
		var (
			v      models.DebtView
			share  int64
			status string
		)
		if err := rows.Scan(&v.ExpenseID, &v.DebtorID, &v.PayerID, &v.Description, &share, &status, &v.ExpenseCreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan debt view: %w", err)
		}
		v.ShareAmount = amount(share)
		v.Status = models.DebtStatus(status)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debt views: %w", err)
	}
	return views, nil
}

// UpdateDebtStatus compare-and-swaps the stored status using a conditional
// UPDATE; row-level locking makes exactly one concurrent statement win.
func (p *PostgresStore) UpdateDebtStatus(ctx context.Context, expenseID, debtorID int64, expected, next models.DebtStatus) error {
	res, err := p.db.ExecContext(ctx,
		"UPDATE debts SET status = $1 WHERE expense_id = $2 AND debtor_id = $3 AND status = $4",
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

	d, err := p.GetDebt(ctx, expenseID, debtorID)
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
