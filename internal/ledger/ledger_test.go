package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/directory"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/memory"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) byType(t events.Type) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// newTestLedger builds an engine over the memory store with participants
// 1..4 registered.
func newTestLedger(t *testing.T) (*Ledger, *capturePublisher) {
	t.Helper()

	dir := directory.NewStatic()
	for id, name := range map[int64]string{1: "alice", 2: "bob", 3: "carol", 4: "dave"} {
		if err := dir.Upsert(context.Background(), id, name); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	pub := &capturePublisher{}
	return New(memory.New(), dir, pub), pub
}

func record(t *testing.T, l *Ledger, payer int64, amount string, debtors ...int64) *RecordExpenseResult {
	t.Helper()
	res, err := l.RecordExpense(context.Background(), RecordExpenseInput{
		PayerID:     payer,
		Amount:      dec(amount),
		Description: "dinner",
		DebtorIDs:   debtors,
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}
	return res
}

func TestRecordExpense_EqualSplit(t *testing.T) {
	l, pub := newTestLedger(t)
	ctx := context.Background()

	res := record(t, l, 1, "90.00", 2, 3, 4)
	if len(res.DebtKeys) != 3 {
		t.Fatalf("expected 3 debt keys, got %d", len(res.DebtKeys))
	}

	view, err := l.ExpenseHistory(ctx, res.ExpenseID)
	if err != nil {
		t.Fatalf("ExpenseHistory failed: %v", err)
	}
	if !view.Expense.ShareAmount.Equal(dec("30.00")) {
		t.Errorf("expense share = %s, want 30.00", view.Expense.ShareAmount)
	}
	for _, d := range view.Debts {
		if !d.ShareAmount.Equal(dec("30.00")) {
			t.Errorf("debtor %d share = %s, want 30.00", d.DebtorID, d.ShareAmount)
		}
		if d.Status != models.StatusPending {
			t.Errorf("debtor %d status = %q, want pending", d.DebtorID, d.Status)
		}
	}

	recorded := pub.byType(events.TypeExpenseRecorded)
	if len(recorded) != 1 {
		t.Fatalf("expected 1 expense.recorded event, got %d", len(recorded))
	}
	if recorded[0].ExpenseID != res.ExpenseID || recorded[0].PayerID != 1 {
		t.Errorf("unexpected event: %+v", recorded[0])
	}
}

func TestRecordExpense_RemainderSplit(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	res := record(t, l, 1, "10.00", 2, 3, 4)
	view, err := l.ExpenseHistory(ctx, res.ExpenseID)
	if err != nil {
		t.Fatalf("ExpenseHistory failed: %v", err)
	}

	want := map[int64]string{2: "3.34", 3: "3.33", 4: "3.33"}
	sum := decimal.Zero
	for _, d := range view.Debts {
		if !d.ShareAmount.Equal(dec(want[d.DebtorID])) {
			t.Errorf("debtor %d share = %s, want %s", d.DebtorID, d.ShareAmount, want[d.DebtorID])
		}
		sum = sum.Add(d.ShareAmount)
	}
	if !sum.Equal(dec("10.00")) {
		t.Errorf("shares sum to %s, want exactly 10.00", sum)
	}
}

func TestRecordExpense_Validation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RecordExpenseInput
	}{
		{"non-positive amount", RecordExpenseInput{PayerID: 1, Amount: dec("0"), Description: "x", DebtorIDs: []int64{2}}},
		{"negative amount", RecordExpenseInput{PayerID: 1, Amount: dec("-5.00"), Description: "x", DebtorIDs: []int64{2}}},
		{"sub-cent amount", RecordExpenseInput{PayerID: 1, Amount: dec("1.005"), Description: "x", DebtorIDs: []int64{2}}},
		{"empty description", RecordExpenseInput{PayerID: 1, Amount: dec("10.00"), Description: "  ", DebtorIDs: []int64{2}}},
		{"empty debtor set", RecordExpenseInput{PayerID: 1, Amount: dec("10.00"), Description: "x"}},
		{"duplicate debtor", RecordExpenseInput{PayerID: 1, Amount: dec("10.00"), Description: "x", DebtorIDs: []int64{2, 2}}},
		{"payer owes themselves", RecordExpenseInput{PayerID: 1, Amount: dec("10.00"), Description: "x", DebtorIDs: []int64{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.RecordExpense(ctx, tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestRecordExpense_UnknownParticipants(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordExpense(ctx, RecordExpenseInput{PayerID: 99, Amount: dec("10.00"), Description: "x", DebtorIDs: []int64{2}})
	var nferr *NotFoundError
	if !errors.As(err, &nferr) || nferr.Entity != "participant" {
		t.Fatalf("expected participant NotFoundError for payer, got %v", err)
	}

	_, err = l.RecordExpense(ctx, RecordExpenseInput{PayerID: 1, Amount: dec("10.00"), Description: "x", DebtorIDs: []int64{2, 99}})
	if !errors.As(err, &nferr) || nferr.Entity != "participant" {
		t.Fatalf("expected participant NotFoundError for debtor, got %v", err)
	}
}

func TestConfirmationFlow(t *testing.T) {
	l, pub := newTestLedger(t)
	ctx := context.Background()
	res := record(t, l, 1, "90.00", 2, 3, 4)

	// Debtor 2 marks their debt.
	status, err := l.MarkDebt(ctx, res.ExpenseID, 2, 2)
	if err != nil {
		t.Fatalf("MarkDebt failed: %v", err)
	}
	if status != models.StatusMarked {
		t.Errorf("status = %q, want marked", status)
	}

	// A non-payer cannot confirm.
	_, err = l.ConfirmDebt(ctx, res.ExpenseID, 2, 3)
	var uerr *UnauthorizedError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}

	// A debtor cannot mark someone else's debt.
	_, err = l.MarkDebt(ctx, res.ExpenseID, 3, 2)
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnauthorizedError for foreign mark, got %v", err)
	}

	// The payer confirms.
	status, err = l.ConfirmDebt(ctx, res.ExpenseID, 2, 1)
	if err != nil {
		t.Fatalf("ConfirmDebt failed: %v", err)
	}
	if status != models.StatusConfirmed {
		t.Errorf("status = %q, want confirmed", status)
	}

	// Confirmed is terminal: marking again conflicts.
	_, err = l.MarkDebt(ctx, res.ExpenseID, 2, 2)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if cerr.Current != models.StatusConfirmed {
		t.Errorf("conflict current = %q, want confirmed", cerr.Current)
	}

	transitions := pub.byType(events.TypeDebtTransitioned)
	if len(transitions) != 2 {
		t.Errorf("expected 2 debt.transitioned events, got %d", len(transitions))
	}
}

func TestSettleDebt_DirectShortcut(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	res := record(t, l, 1, "30.00", 2, 3)

	// Only the payer may settle directly.
	_, err := l.SettleDebt(ctx, res.ExpenseID, 2, 2)
	var uerr *UnauthorizedError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}

	status, err := l.SettleDebt(ctx, res.ExpenseID, 2, 1)
	if err != nil {
		t.Fatalf("SettleDebt failed: %v", err)
	}
	if status != models.StatusConfirmed {
		t.Errorf("status = %q, want confirmed", status)
	}
}

func TestTransitionDebt_IllegalMoves(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	res := record(t, l, 1, "30.00", 2, 3)

	tests := []struct {
		name           string
		expected, next models.DebtStatus
	}{
		{"backward marked→pending", models.StatusMarked, models.StatusPending},
		{"backward confirmed→marked", models.StatusConfirmed, models.StatusMarked},
		{"no-op pending→pending", models.StatusPending, models.StatusPending},
		{"unknown status", models.DebtStatus("paid"), models.StatusConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.TransitionDebt(ctx, res.ExpenseID, 2, tt.expected, tt.next, 1)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestTransitionDebt_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	res := record(t, l, 1, "30.00", 2, 3)

	_, err := l.MarkDebt(ctx, 9999, 2, 2)
	var nferr *NotFoundError
	if !errors.As(err, &nferr) || nferr.Entity != "expense" {
		t.Fatalf("expected expense NotFoundError, got %v", err)
	}

	// Debtor 4 exists in the directory but owes nothing on this expense.
	_, err = l.MarkDebt(ctx, res.ExpenseID, 4, 4)
	if !errors.As(err, &nferr) || nferr.Entity != "debt" {
		t.Fatalf("expected debt NotFoundError, got %v", err)
	}
}

func TestTransitionDebt_IdempotentRetry(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	res := record(t, l, 1, "30.00", 2, 3)

	if _, err := l.MarkDebt(ctx, res.ExpenseID, 2, 2); err != nil {
		t.Fatalf("MarkDebt failed: %v", err)
	}

	// Retrying the identical transition after success is not a conflict.
	status, err := l.MarkDebt(ctx, res.ExpenseID, 2, 2)
	if err != nil {
		t.Fatalf("idempotent retry failed: %v", err)
	}
	if status != models.StatusMarked {
		t.Errorf("status = %q, want marked", status)
	}

	// But a different expectation against the same stored status still
	// conflicts.
	_, err = l.SettleDebt(ctx, res.ExpenseID, 2, 1)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if cerr.Current != models.StatusMarked {
		t.Errorf("conflict current = %q, want marked", cerr.Current)
	}
}

func TestBalanceQueries(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	res := record(t, l, 1, "90.00", 2, 3, 4)

	// Debtor 2 settles up end to end.
	if _, err := l.MarkDebt(ctx, res.ExpenseID, 2, 2); err != nil {
		t.Fatalf("MarkDebt failed: %v", err)
	}
	if _, err := l.ConfirmDebt(ctx, res.ExpenseID, 2, 1); err != nil {
		t.Fatalf("ConfirmDebt failed: %v", err)
	}

	b2, err := l.Balance(ctx, 2)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if !b2.IsZero() {
		t.Errorf("balance(2) = %s, want 0 after confirmation", b2)
	}

	b3, err := l.Balance(ctx, 3)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if !b3.Equal(dec("30.00")) {
		t.Errorf("balance(3) = %s, want 30.00", b3)
	}

	_, err = l.Balance(ctx, 99)
	var nferr *NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError for unknown participant, got %v", err)
	}
}

func TestNetBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	record(t, l, 1, "90.00", 2, 3, 4) // 2 owes 1: 30.00
	record(t, l, 2, "25.00", 1, 3)    // 1 owes 2: 12.50

	net, err := l.NetBalance(ctx, 2, 1)
	if err != nil {
		t.Fatalf("NetBalance failed: %v", err)
	}
	if !net.Equal(dec("17.50")) {
		t.Errorf("net(2→1) = %s, want 17.50", net)
	}

	// Symmetric view negates.
	rev, err := l.NetBalance(ctx, 1, 2)
	if err != nil {
		t.Fatalf("NetBalance failed: %v", err)
	}
	if !rev.Equal(dec("-17.50")) {
		t.Errorf("net(1→2) = %s, want -17.50", rev)
	}
}

func TestPendingConfirmationsAndDebts(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	first := record(t, l, 1, "90.00", 2, 3, 4)
	second := record(t, l, 1, "10.00", 2, 3, 4)

	for _, k := range []models.DebtKey{
		{ExpenseID: second.ExpenseID, DebtorID: 3},
		{ExpenseID: first.ExpenseID, DebtorID: 4},
		{ExpenseID: first.ExpenseID, DebtorID: 2},
	} {
		if _, err := l.MarkDebt(ctx, k.ExpenseID, k.DebtorID, k.DebtorID); err != nil {
			t.Fatalf("MarkDebt failed: %v", err)
		}
	}

	confirmations, err := l.PendingConfirmations(ctx, 1)
	if err != nil {
		t.Fatalf("PendingConfirmations failed: %v", err)
	}
	if len(confirmations) != 3 {
		t.Fatalf("expected 3 pending confirmations, got %d", len(confirmations))
	}
	// Ordered by expense creation then debtor id.
	wantOrder := []models.DebtKey{
		{ExpenseID: first.ExpenseID, DebtorID: 2},
		{ExpenseID: first.ExpenseID, DebtorID: 4},
		{ExpenseID: second.ExpenseID, DebtorID: 3},
	}
	for i, want := range wantOrder {
		got := models.DebtKey{ExpenseID: confirmations[i].ExpenseID, DebtorID: confirmations[i].DebtorID}
		if got != want {
			t.Errorf("confirmation %d = %+v, want %+v", i, got, want)
		}
	}

	pending, err := l.PendingDebts(ctx, 3)
	if err != nil {
		t.Fatalf("PendingDebts failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ExpenseID != first.ExpenseID {
		t.Errorf("unexpected pending debts for 3: %+v", pending)
	}
}

func TestSummaryAndMarkedDebtors(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	res := record(t, l, 1, "90.00", 2, 3, 4)
	record(t, l, 2, "8.00", 1)

	if _, err := l.MarkDebt(ctx, res.ExpenseID, 3, 3); err != nil {
		t.Fatalf("MarkDebt failed: %v", err)
	}

	summary, err := l.Summary(ctx, 1)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(summary.OwedToMe) != 3 {
		t.Errorf("expected 3 debts owed to 1, got %d", len(summary.OwedToMe))
	}
	if len(summary.IOwe) != 1 {
		t.Errorf("expected 1 debt owed by 1, got %d", len(summary.IOwe))
	}

	marked, err := l.MarkedDebtors(ctx, res.ExpenseID)
	if err != nil {
		t.Fatalf("MarkedDebtors failed: %v", err)
	}
	if len(marked) != 1 || marked[0] != 3 {
		t.Errorf("marked debtors = %v, want [3]", marked)
	}
}

func TestConcurrentMarks_OneApplication(t *testing.T) {
	l, pub := newTestLedger(t)
	ctx := context.Background()
	res := record(t, l, 1, "30.00", 2, 3)

	const n = 16
	var wg sync.WaitGroup
	statuses := make([]models.DebtStatus, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], errs[i] = l.MarkDebt(ctx, res.ExpenseID, 2, 2)
		}(i)
	}
	wg.Wait()

	// Every caller either won the race or was answered idempotently; in
	// both cases the terminal status is marked and the debt advanced once.
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Errorf("call %d: unexpected error %v", i, errs[i])
		}
		if statuses[i] != models.StatusMarked {
			t.Errorf("call %d: status %q, want marked", i, statuses[i])
		}
	}

	d, err := l.store.GetDebt(ctx, res.ExpenseID, 2)
	if err != nil {
		t.Fatalf("GetDebt failed: %v", err)
	}
	if d.Status != models.StatusMarked {
		t.Errorf("stored status = %q, want marked", d.Status)
	}

	// The store applied the transition exactly once, so at most one event
	// per winner was published; losers converted to idempotent reads.
	transitions := pub.byType(events.TypeDebtTransitioned)
	if len(transitions) != 1 {
		t.Errorf("expected 1 transition event, got %d", len(transitions))
	}
}
