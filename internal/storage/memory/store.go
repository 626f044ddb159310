// Package memory provides an in-memory implementation of storage.Store,
// used in tests and lightweight deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps the ledger in process memory. A single mutex guards both
// record sets, so expense creation is trivially atomic and debt status
// updates compare-and-swap without a separate version token.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	expenses map[int64]models.Expense
	debts    map[models.DebtKey]models.Debt
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:   1,
		expenses: make(map[int64]models.Expense),
		debts:    make(map[models.DebtKey]models.Debt),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// CreateExpense assigns a monotonically increasing id and inserts the
// expense together with its debt set. Nothing is retained on failure.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense, debts []models.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]bool, len(debts))
	for _, d := range debts {
		if seen[d.DebtorID] {
			return storage.ErrDuplicateDebt
		}
		seen[d.DebtorID] = true
	}

	expense.ID = s.nextID
	s.nextID++
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	s.expenses[expense.ID] = *expense

	for i := range debts {
		debts[i].ExpenseID = expense.ID
		s.debts[debts[i].Key()] = debts[i]
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, expenseID int64) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[expenseID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &e, nil
}

func (s *Store) GetDebt(ctx context.Context, expenseID, debtorID int64) (*models.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.debts[models.DebtKey{ExpenseID: expenseID, DebtorID: debtorID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &d, nil
}

func (s *Store) ListDebts(ctx context.Context, expenseID int64) ([]models.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.expenses[expenseID]; !ok {
		return nil, storage.ErrNotFound
	}

	var out []models.Debt
	for _, d := range s.debts {
		if d.ExpenseID == expenseID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DebtorID < out[j].DebtorID })
	return out, nil
}

func (s *Store) ListDebtsByDebtor(ctx context.Context, debtorID int64) ([]models.DebtView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DebtView
	for _, d := range s.debts {
		if d.DebtorID == debtorID {
			out = append(out, s.view(d))
		}
	}
	sortViews(out)
	return out, nil
}

func (s *Store) ListDebtsByPayer(ctx context.Context, payerID int64) ([]models.DebtView, error) {
	return s.listByPayer(payerID, "")
}

func (s *Store) ListMarkedByPayer(ctx context.Context, payerID int64) ([]models.DebtView, error) {
	return s.listByPayer(payerID, models.StatusMarked)
}

// listByPayer collects debts whose owning expense was paid by payerID,
// optionally filtered to one status.
func (s *Store) listByPayer(payerID int64, status models.DebtStatus) ([]models.DebtView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DebtView
	for _, d := range s.debts {
		e := s.expenses[d.ExpenseID]
		if e.PayerID != payerID {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, s.view(d))
	}
	sortViews(out)
	return out, nil
}

// UpdateDebtStatus applies the status transition only if the stored status
// still equals expected. Exactly one of several concurrent callers wins;
// the rest observe the post-transition status in the conflict error.
func (s *Store) UpdateDebtStatus(ctx context.Context, expenseID, debtorID int64, expected, next models.DebtStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.DebtKey{ExpenseID: expenseID, DebtorID: debtorID}
	d, ok := s.debts[key]
	if !ok {
		return storage.ErrNotFound
	}
	if d.Status != expected {
		return &storage.StatusConflictError{
			ExpenseID: expenseID,
			DebtorID:  debtorID,
			Expected:  expected,
			Current:   d.Status,
		}
	}
	d.Status = next
	s.debts[key] = d
	return nil
}

// view joins a debt with its owning expense. Callers hold s.mu.
func (s *Store) view(d models.Debt) models.DebtView {
	e := s.expenses[d.ExpenseID]
	return models.DebtView{
		ExpenseID:        d.ExpenseID,
		DebtorID:         d.DebtorID,
		PayerID:          e.PayerID,
		Description:      e.Description,
		ShareAmount:      d.ShareAmount,
		Status:           d.Status,
		ExpenseCreatedAt: e.CreatedAt,
	}
}

func sortViews(views []models.DebtView) {
	sort.Slice(views, func(i, j int) bool {
		if views[i].ExpenseID != views[j].ExpenseID {
			return views[i].ExpenseID < views[j].ExpenseID
		}
		return views[i].DebtorID < views[j].DebtorID
	})
}
