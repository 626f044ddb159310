package storage

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when a referenced expense or debt does not
	// exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateDebt is returned when an expense's debt set would contain
	// the same debtor twice.
	ErrDuplicateDebt = errors.New("debtor already owes this expense")
)

// StatusConflictError reports a failed compare-and-swap on a debt status:
// the stored status did not match the caller's expectation. Current is the
// status observed at the time of the failure so the caller can decide
// whether to retry with updated expectations.
type StatusConflictError struct {
	ExpenseID int64
	DebtorID  int64
	Expected  models.DebtStatus
	Current   models.DebtStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("debt (%d,%d): expected status %q but found %q",
		e.ExpenseID, e.DebtorID, e.Expected, e.Current)
}
