// Package calculator computes per-debtor shares and read-side balance
// aggregations. It is pure arithmetic: no storage, no I/O.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SplitPolicy derives per-debtor shares from a total amount. Implementations
// must return exactly one share per debtor, in debtor order, with the sum of
// shares within one cent of the amount.
type SplitPolicy interface {
	// Name identifies the policy in logs and events.
	Name() string

	// Shares splits amount across n debtors.
	Shares(amount decimal.Decimal, n int) ([]decimal.Decimal, error)
}

// EqualSplit divides the amount evenly at cent precision and hands the
// leftover cents out one each to the first debtors, so shares always sum to
// the amount exactly. 10.00 across three debtors yields 3.34, 3.33, 3.33.
var EqualSplit SplitPolicy = equalSplit{}

type equalSplit struct{}

func (equalSplit) Name() string { return "equal" }

func (equalSplit) Shares(amount decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("must have at least one debtor")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, fmt.Errorf("amount %s has sub-cent precision", amount)
	}

	// Work in integer cents so the shares sum exactly.
	totalCents := amount.Shift(2).IntPart()
	base := totalCents / int64(n)
	rem := totalCents % int64(n)
	if base == 0 {
		return nil, fmt.Errorf("amount %s too small to split %d ways", amount, n)
	}

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		cents := base
		if int64(i) < rem {
			cents++
		}
		shares[i] = decimal.New(cents, -2)
	}
	return shares, nil
}

// BaseShare returns the even per-debtor amount before remainder
// distribution, recorded on the Expense as its nominal share.
func BaseShare(amount decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return decimal.New(amount.Shift(2).IntPart()/int64(n), -2)
}
