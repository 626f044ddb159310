// Package ledger implements the debt lifecycle engine: recording expenses
// with their per-debtor obligations, advancing obligations through the
// pending→marked→confirmed workflow, and answering balance and history
// queries. Storage and the participant directory are injected, so the
// engine itself is storage-agnostic.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/directory"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ledger is the shared-expense engine. Safe for concurrent use: atomicity
// of expense recording and the one-winner property of transitions are
// delegated to the store's contract.
type Ledger struct {
	store storage.Store
	dir   directory.Directory
	pub   events.Publisher
}

// New creates an engine over the given store and participant directory.
// Pass events.Nop{} when no event collaborator is configured.
func New(store storage.Store, dir directory.Directory, pub events.Publisher) *Ledger {
	return &Ledger{store: store, dir: dir, pub: pub}
}

// RecordExpenseInput carries the facts of one expense to record.
type RecordExpenseInput struct {
	PayerID     int64
	Amount      decimal.Decimal
	Description string
	DebtorIDs   []int64

	// Policy derives per-debtor shares. Nil means calculator.EqualSplit.
	Policy calculator.SplitPolicy
}

// RecordExpenseResult names the records an expense write created.
type RecordExpenseResult struct {
	ExpenseID int64
	DebtKeys  []models.DebtKey
}

// RecordExpense validates the input, splits the amount under the policy,
// and persists the expense plus one pending debt per debtor atomically.
// Nothing is written when validation fails; a failed write retains no
// partial state and the whole call is safe to retry.
func (l *Ledger) RecordExpense(ctx context.Context, in RecordExpenseInput) (*RecordExpenseResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, validationf("amount must be positive, got %s", in.Amount)
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, validationf("amount %s has sub-cent precision", in.Amount)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, validationf("description must not be empty")
	}
	if len(in.DebtorIDs) == 0 {
		return nil, validationf("debtor set must not be empty")
	}

	// Normalize the debtor set: sorted, unique, payer excluded.
	debtorIDs := make([]int64, len(in.DebtorIDs))
	copy(debtorIDs, in.DebtorIDs)
	sort.Slice(debtorIDs, func(i, j int) bool { return debtorIDs[i] < debtorIDs[j] })
	for i := 1; i < len(debtorIDs); i++ {
		if debtorIDs[i] == debtorIDs[i-1] {
			return nil, validationf("duplicate debtor %d", debtorIDs[i])
		}
	}
	for _, id := range debtorIDs {
		if id == in.PayerID {
			return nil, validationf("payer %d cannot owe their own expense", in.PayerID)
		}
	}

	// Directory checks happen before any store lock or write.
	if err := l.requireParticipant(ctx, in.PayerID); err != nil {
		return nil, err
	}
	for _, id := range debtorIDs {
		if err := l.requireParticipant(ctx, id); err != nil {
			return nil, err
		}
	}

	policy := in.Policy
	if policy == nil {
		policy = calculator.EqualSplit
	}
	shares, err := policy.Shares(in.Amount, len(debtorIDs))
	if err != nil {
		return nil, validationf("split policy %q: %v", policy.Name(), err)
	}
	if len(shares) != len(debtorIDs) {
		return nil, validationf("split policy %q returned %d shares for %d debtors", policy.Name(), len(shares), len(debtorIDs))
	}
	sum := decimal.Zero
	for _, s := range shares {
		if s.LessThanOrEqual(decimal.Zero) {
			return nil, validationf("split policy %q produced non-positive share %s", policy.Name(), s)
		}
		sum = sum.Add(s)
	}
	// Collected shares may never diverge from the amount by more than one
	// minimal currency unit.
	if sum.Sub(in.Amount).Abs().GreaterThan(decimal.New(1, -2)) {
		return nil, validationf("split policy %q shares sum to %s, amount is %s", policy.Name(), sum, in.Amount)
	}

	expense := &models.Expense{
		PayerID:     in.PayerID,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		ShareAmount: calculator.BaseShare(in.Amount, len(debtorIDs)),
	}
	debts := make([]models.Debt, len(debtorIDs))
	for i, id := range debtorIDs {
		debts[i] = models.Debt{
			DebtorID:    id,
			ShareAmount: shares[i],
			Status:      models.StatusPending,
		}
	}

	if err := l.store.CreateExpense(ctx, expense, debts); err != nil {
		if errors.Is(err, storage.ErrDuplicateDebt) {
			return nil, validationf("duplicate debtor in debt set")
		}
		return nil, &ConsistencyError{Err: err}
	}

	keys := make([]models.DebtKey, len(debts))
	for i, d := range debts {
		keys[i] = d.Key()
	}

	slog.Info("expense recorded",
		"expense_id", expense.ID,
		"payer_id", expense.PayerID,
		"amount", expense.Amount,
		"debtors", len(keys),
	)

	ev := events.NewEvent(events.TypeExpenseRecorded)
	ev.ExpenseID = expense.ID
	ev.PayerID = expense.PayerID
	ev.Amount = expense.Amount
	l.publish(ctx, ev)

	return &RecordExpenseResult{ExpenseID: expense.ID, DebtKeys: keys}, nil
}

// TransitionDebt advances one debt from expected to next on behalf of
// actorID. The store applies the change as a compare-and-swap; of several
// concurrent attempts with the same expectation exactly one wins. A retry
// after a successful application (stored status already equals next) is
// answered with the applied status and no error.
func (l *Ledger) TransitionDebt(ctx context.Context, expenseID, debtorID int64, expected, next models.DebtStatus, actorID int64) (models.DebtStatus, error) {
	if !expected.Valid() || !next.Valid() {
		return "", validationf("unknown debt status")
	}
	if !models.LegalTransition(expected, next) {
		return "", validationf("illegal transition %q→%q", expected, next)
	}

	expense, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", &NotFoundError{Entity: "expense", Key: fmt.Sprintf("%d", expenseID)}
		}
		return "", err
	}

	// Marking is self-reported by the debtor; confirmation in any form is
	// reserved for the expense's payer.
	switch next {
	case models.StatusMarked:
		if actorID != debtorID {
			return "", &UnauthorizedError{ActorID: actorID, Reason: fmt.Sprintf("only debtor %d may mark this debt as paid", debtorID)}
		}
	case models.StatusConfirmed:
		if actorID != expense.PayerID {
			return "", &UnauthorizedError{ActorID: actorID, Reason: fmt.Sprintf("only payer %d may confirm this debt", expense.PayerID)}
		}
	}

	if err := l.store.UpdateDebtStatus(ctx, expenseID, debtorID, expected, next); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", &NotFoundError{Entity: "debt", Key: fmt.Sprintf("(%d,%d)", expenseID, debtorID)}
		}
		var conflict *storage.StatusConflictError
		if errors.As(err, &conflict) {
			// Idempotent retry: the transition was already applied.
			if conflict.Current == next {
				return next, nil
			}
			return "", &ConflictError{
				ExpenseID: expenseID,
				DebtorID:  debtorID,
				Expected:  expected,
				Current:   conflict.Current,
				Requested: next,
			}
		}
		return "", err
	}

	slog.Info("debt transitioned",
		"expense_id", expenseID,
		"debtor_id", debtorID,
		"from", expected,
		"to", next,
		"actor_id", actorID,
	)

	ev := events.NewEvent(events.TypeDebtTransitioned)
	ev.ExpenseID = expenseID
	ev.PayerID = expense.PayerID
	ev.DebtorID = debtorID
	ev.Status = next
	l.publish(ctx, ev)

	return next, nil
}

// MarkDebt is the debtor asserting they have paid: pending→marked.
func (l *Ledger) MarkDebt(ctx context.Context, expenseID, debtorID, actorID int64) (models.DebtStatus, error) {
	return l.TransitionDebt(ctx, expenseID, debtorID, models.StatusPending, models.StatusMarked, actorID)
}

// ConfirmDebt is the payer acknowledging receipt: marked→confirmed.
func (l *Ledger) ConfirmDebt(ctx context.Context, expenseID, debtorID, actorID int64) (models.DebtStatus, error) {
	return l.TransitionDebt(ctx, expenseID, debtorID, models.StatusMarked, models.StatusConfirmed, actorID)
}

// SettleDebt is the payer settling a debt directly without the debtor
// marking first: pending→confirmed. It is a distinct, explicitly invoked
// shortcut, never a side effect of another call.
func (l *Ledger) SettleDebt(ctx context.Context, expenseID, debtorID, actorID int64) (models.DebtStatus, error) {
	return l.TransitionDebt(ctx, expenseID, debtorID, models.StatusPending, models.StatusConfirmed, actorID)
}

func (l *Ledger) requireParticipant(ctx context.Context, participantID int64) error {
	ok, err := l.dir.Exists(ctx, participantID)
	if err != nil {
		return fmt.Errorf("directory lookup for %d: %w", participantID, err)
	}
	if !ok {
		return &NotFoundError{Entity: "participant", Key: fmt.Sprintf("%d", participantID)}
	}
	return nil
}

// publish sends best-effort: delivery is an external concern and never
// fails the ledger operation it follows.
func (l *Ledger) publish(ctx context.Context, ev events.Event) {
	if err := l.pub.Publish(ctx, ev); err != nil {
		slog.Warn("event publish failed", "type", ev.Type, "expense_id", ev.ExpenseID, "error", err)
	}
}
