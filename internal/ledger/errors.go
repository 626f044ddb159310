package ledger

import (
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
)

// The engine reports every failure as one of five error kinds. All of them
// are scoped to the single requested operation; none are fatal to the
// process. Callers match with errors.As.

// ValidationError rejects malformed input before any write. Retrying the
// same call will fail the same way.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a reference to a participant, expense, or debt that
// does not exist.
type NotFoundError struct {
	Entity string // "participant", "expense", "debt"
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// ConflictError reports a debt transition whose expected prior status did
// not match the stored status: either the caller lost a compare-and-swap
// race or requested an illegal move. Current lets the caller retry with
// updated expectations or abandon.
type ConflictError struct {
	ExpenseID int64
	DebtorID  int64
	Expected  models.DebtStatus
	Current   models.DebtStatus
	Requested models.DebtStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("debt (%d,%d): cannot move %q→%q, current status is %q",
		e.ExpenseID, e.DebtorID, e.Expected, e.Requested, e.Current)
}

// UnauthorizedError reports a transition attempted by a participant who is
// not allowed to perform it.
type UnauthorizedError struct {
	ActorID int64
	Reason  string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("participant %d: %s", e.ActorID, e.Reason)
}

// ConsistencyError reports that the store could not complete an atomic
// multi-record write. No partial state is retained, so the whole operation
// is safe to retry.
type ConsistencyError struct {
	Err error
}

func (e *ConsistencyError) Error() string {
	return "ledger write failed: " + e.Err.Error()
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}
