package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Read-side queries. All of them are pure functions of committed ledger
// state; none mutate anything or block writers.

// Balance returns the participant's outstanding balance: the sum of share
// amounts over their unconfirmed debts.
func (l *Ledger) Balance(ctx context.Context, participantID int64) (decimal.Decimal, error) {
	if err := l.requireParticipant(ctx, participantID); err != nil {
		return decimal.Zero, err
	}
	debts, err := l.store.ListDebtsByDebtor(ctx, participantID)
	if err != nil {
		return decimal.Zero, err
	}
	return calculator.OutstandingBalance(debts), nil
}

// NetBalance returns the pairwise netting view between debtor and creditor:
// what debtor owes toward creditor's expenses minus the reverse, both over
// unconfirmed debts. Positive means debtor owes creditor on net.
func (l *Ledger) NetBalance(ctx context.Context, debtorID, creditorID int64) (decimal.Decimal, error) {
	if err := l.requireParticipant(ctx, debtorID); err != nil {
		return decimal.Zero, err
	}
	if err := l.requireParticipant(ctx, creditorID); err != nil {
		return decimal.Zero, err
	}

	aDebts, err := l.store.ListDebtsByDebtor(ctx, debtorID)
	if err != nil {
		return decimal.Zero, err
	}
	bDebts, err := l.store.ListDebtsByDebtor(ctx, creditorID)
	if err != nil {
		return decimal.Zero, err
	}
	return calculator.NetBalance(debtorID, creditorID, aDebts, bDebts), nil
}

// ExpenseHistory returns the expense record with its full debt set and
// current statuses, debts ordered by debtor id.
func (l *Ledger) ExpenseHistory(ctx context.Context, expenseID int64) (*models.ExpenseView, error) {
	expense, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{Entity: "expense", Key: fmt.Sprintf("%d", expenseID)}
		}
		return nil, err
	}
	debts, err := l.store.ListDebts(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	return &models.ExpenseView{Expense: *expense, Debts: debts}, nil
}

// PendingConfirmations returns the marked debts awaiting the payer's
// confirmation, ordered by expense creation time then debtor id.
func (l *Ledger) PendingConfirmations(ctx context.Context, payerID int64) ([]models.DebtView, error) {
	if err := l.requireParticipant(ctx, payerID); err != nil {
		return nil, err
	}
	return l.store.ListMarkedByPayer(ctx, payerID)
}

// PendingDebts returns the debtor's debts still in pending, with expense
// facts attached.
func (l *Ledger) PendingDebts(ctx context.Context, debtorID int64) ([]models.DebtView, error) {
	if err := l.requireParticipant(ctx, debtorID); err != nil {
		return nil, err
	}
	all, err := l.store.ListDebtsByDebtor(ctx, debtorID)
	if err != nil {
		return nil, err
	}
	var pending []models.DebtView
	for _, d := range all {
		if d.Status == models.StatusPending {
			pending = append(pending, d)
		}
	}
	return pending, nil
}

// Summary returns the participant's two-sided position across all
// statuses: debts owed to them and debts they owe.
func (l *Ledger) Summary(ctx context.Context, participantID int64) (*models.Summary, error) {
	if err := l.requireParticipant(ctx, participantID); err != nil {
		return nil, err
	}
	owedToMe, err := l.store.ListDebtsByPayer(ctx, participantID)
	if err != nil {
		return nil, err
	}
	iOwe, err := l.store.ListDebtsByDebtor(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return &models.Summary{OwedToMe: owedToMe, IOwe: iOwe}, nil
}

// MarkedDebtors returns the debtor ids currently marked for an expense.
func (l *Ledger) MarkedDebtors(ctx context.Context, expenseID int64) ([]int64, error) {
	view, err := l.ExpenseHistory(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	var debtors []int64
	for _, d := range view.Debts {
		if d.Status == models.StatusMarked {
			debtors = append(debtors, d.DebtorID)
		}
	}
	return debtors, nil
}
