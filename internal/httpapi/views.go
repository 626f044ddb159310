package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// Wire representations. Amounts serialize as decimal strings.

type debtJSON struct {
	ExpenseID   int64             `json:"expense_id"`
	DebtorID    int64             `json:"debtor_id"`
	ShareAmount decimal.Decimal   `json:"share_amount"`
	Status      models.DebtStatus `json:"status"`
}

type expenseViewJSON struct {
	ID          int64           `json:"id"`
	PayerID     int64           `json:"payer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ShareAmount decimal.Decimal `json:"share_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Debts       []debtJSON      `json:"debts"`
}

type debtViewJSON struct {
	ExpenseID        int64             `json:"expense_id"`
	DebtorID         int64             `json:"debtor_id"`
	PayerID          int64             `json:"payer_id"`
	Description      string            `json:"description"`
	ShareAmount      decimal.Decimal   `json:"share_amount"`
	Status           models.DebtStatus `json:"status"`
	ExpenseCreatedAt time.Time         `json:"expense_created_at"`
}

func toExpenseView(v *models.ExpenseView) expenseViewJSON {
	out := expenseViewJSON{
		ID:          v.Expense.ID,
		PayerID:     v.Expense.PayerID,
		Amount:      v.Expense.Amount,
		Description: v.Expense.Description,
		ShareAmount: v.Expense.ShareAmount,
		CreatedAt:   v.Expense.CreatedAt,
		Debts:       make([]debtJSON, len(v.Debts)),
	}
	for i, d := range v.Debts {
		out.Debts[i] = debtJSON{
			ExpenseID:   d.ExpenseID,
			DebtorID:    d.DebtorID,
			ShareAmount: d.ShareAmount,
			Status:      d.Status,
		}
	}
	return out
}

func toDebtViews(views []models.DebtView) []debtViewJSON {
	out := make([]debtViewJSON, len(views))
	for i, v := range views {
		out[i] = debtViewJSON{
			ExpenseID:        v.ExpenseID,
			DebtorID:         v.DebtorID,
			PayerID:          v.PayerID,
			Description:      v.Description,
			ShareAmount:      v.ShareAmount,
			Status:           v.Status,
			ExpenseCreatedAt: v.ExpenseCreatedAt,
		}
	}
	return out
}
