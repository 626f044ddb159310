package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// OutstandingBalance sums the shares of every unconfirmed debt in debts.
// Callers pass the debts of a single debtor; confirmed debts are settled
// and excluded.
func OutstandingBalance(debts []models.DebtView) decimal.Decimal {
	total := decimal.Zero
	for _, d := range debts {
		if d.Status != models.StatusConfirmed {
			total = total.Add(d.ShareAmount)
		}
	}
	return total
}

// NetBalance computes the pairwise netting view between two participants:
// what a owes toward b's expenses minus what b owes toward a's expenses,
// both restricted to unconfirmed debts. Positive means a owes b on net.
//
// aDebts and bDebts are the full debt listings of a and b respectively;
// rows against other payers are ignored.
func NetBalance(a, b int64, aDebts, bDebts []models.DebtView) decimal.Decimal {
	net := decimal.Zero
	for _, d := range aDebts {
		if d.PayerID == b && d.Status != models.StatusConfirmed {
			net = net.Add(d.ShareAmount)
		}
	}
	for _, d := range bDebts {
		if d.PayerID == a && d.Status != models.StatusConfirmed {
			net = net.Sub(d.ShareAmount)
		}
	}
	return net
}
